package reminder

import (
	"fmt"
	"net/url"
	"strings"

	"repcount/internal/domain/lifecycle"
)

const linkBase = "https://wa.me/"

// BuildLink returns the chat deep link that opens a conversation with phone
// pre-filled with message.
// PRE: phone reduces to a 10-digit national number (see lifecycle.NormalizePhone)
// POST: Returns https://wa.me/<91XXXXXXXXXX>?text=<escaped message>; decoding
// the text parameter yields message byte for byte
func BuildLink(phone, message string) (string, error) {
	normalized, ok := lifecycle.NormalizePhone(phone)
	if !ok {
		return "", fmt.Errorf("%w: phone %q", lifecycle.ErrMalformedInput, phone)
	}
	// Spaces go out as %20; literal pluses are already escaped to %2B.
	escaped := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return linkBase + normalized + "?text=" + escaped, nil
}
