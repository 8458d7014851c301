package lifecycle

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	rupeeSymbol       = "₹"
	countryCode       = "91"
	nationalDigits    = 10
	initialsSentinel  = "??"
	maxInitials       = 2
	shortCodeLength   = 6
	displayDateLayout = "2 Jan 2006"
)

// FormatCurrencyINR renders a whole-rupee amount with Indian digit grouping.
// Fractions are rounded half to even (1500.5 -> ₹1,500, 1501.5 -> ₹1,502).
func FormatCurrencyINR(amount decimal.Decimal) string {
	rounded := amount.RoundBank(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	return sign + rupeeSymbol + groupIndian(rounded.String())
}

// groupIndian inserts separators the en-IN way: the last three digits form
// one group, every two digits before that form another.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	lead := len(head) % 2
	if lead == 1 {
		b.WriteString(head[:1])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// nationalNumber extracts the 10-digit national number from a phone string.
func nationalNumber(phone string) (string, bool) {
	d := digitsOnly(phone)
	switch {
	case len(d) == nationalDigits:
		return d, true
	case len(d) == nationalDigits+2 && strings.HasPrefix(d, countryCode):
		return d[2:], true
	case len(d) == nationalDigits+1 && d[0] == '0':
		return d[1:], true
	}
	return "", false
}

// FormatPhone formats a phone number for display as "98765 43210".
// Input that does not reduce to a 10-digit national number is returned unchanged.
func FormatPhone(phone string) string {
	d := digitsOnly(phone)
	switch {
	case len(d) == nationalDigits:
	case len(d) == nationalDigits+2 && strings.HasPrefix(d, countryCode):
		d = d[2:]
	default:
		return phone
	}
	return d[:5] + " " + d[5:]
}

// NormalizePhone returns the 12-digit, 91-prefixed form of a phone number
// used in deep links. Accepts 10 digits, 12 digits starting with 91, or a
// trunk-prefixed 0 plus 10 digits; punctuation and spaces are ignored.
func NormalizePhone(phone string) (string, bool) {
	n, ok := nationalNumber(phone)
	if !ok {
		return "", false
	}
	return countryCode + n, true
}

// Initials returns up to two upper-cased initials for a display avatar.
func Initials(name string) string {
	var b strings.Builder
	for _, token := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(token)
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return initialsSentinel
	}
	upper := []rune(strings.ToUpper(b.String()))
	if len(upper) > maxInitials {
		upper = upper[:maxInitials]
	}
	return string(upper)
}

// Slugify turns free text into a URL slug: "Gold's Gym #1!" -> "gold-s-gym-1".
// Accents are folded first so "Café Fit" becomes "cafe-fit".
// INVARIANT: Slugify(Slugify(x)) == Slugify(x)
func Slugify(text string) string {
	// Chains carry state, so one is built per call.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// ShortCode returns the last six alphanumerics of an opaque identifier,
// upper-cased, so staff can read a member's check-in code aloud.
func ShortCode(id string) string {
	var alnum []rune
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			alnum = append(alnum, r)
		}
	}
	if len(alnum) > shortCodeLength {
		alnum = alnum[len(alnum)-shortCodeLength:]
	}
	return strings.ToUpper(string(alnum))
}

// FormatDate renders a date for display, e.g. "17 Oct 2026". Unset dates render as "".
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Midnight().Format(displayDateLayout)
}
