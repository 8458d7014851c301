package gym

import (
	"errors"
	"strings"
	"time"

	"repcount/internal/domain/lifecycle"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Domain errors
var (
	ErrEmptyName    = errors.New("gym name cannot be empty")
	ErrNameTooLong  = errors.New("gym name cannot exceed 100 characters")
	ErrEmptySlug    = errors.New("gym name must contain letters or digits")
	ErrInvalidUPIID = errors.New("UPI ID must look like name@bank")
	ErrInvalidLink  = errors.New("app link must start with http:// or https://")
	ErrEmptyOwnerID = errors.New("gym must have an owner account")
)

// Gym is the tenant every member, check-in and reminder belongs to.
type Gym struct {
	ID             string
	Name           string
	Slug           string
	OwnerAccountID string
	OwnerEmail     string // digest recipient
	TelegramChatID int64  // optional digest channel, 0 when unset
	UPIID          string // optional, shown on renewal reminders
	AppLink        string // member app link sent in welcome messages
	CreatedAt      time.Time
}

// Rename sets the display name and re-derives the slug.
// POST: Slug == lifecycle.Slugify(Name)
func (g *Gym) Rename(name string) {
	g.Name = strings.TrimSpace(name)
	g.Slug = lifecycle.Slugify(g.Name)
}

// Validate checks if the Gym has valid data.
// PRE: Gym struct is populated
// POST: Returns nil if valid, error otherwise
func (g *Gym) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if g.Slug == "" {
		return ErrEmptySlug
	}
	if g.OwnerAccountID == "" {
		return ErrEmptyOwnerID
	}
	if g.UPIID != "" && !validUPIID(g.UPIID) {
		return ErrInvalidUPIID
	}
	if g.AppLink != "" && !strings.HasPrefix(g.AppLink, "https://") && !strings.HasPrefix(g.AppLink, "http://") {
		return ErrInvalidLink
	}
	return nil
}

// MemberAppLink returns the link welcome messages point new members at.
func (g *Gym) MemberAppLink() string {
	return g.AppLink
}

func validUPIID(id string) bool {
	at := strings.IndexByte(id, '@')
	return at > 0 && at < len(id)-1 && !strings.ContainsAny(id, " \t\n") && strings.Count(id, "@") == 1
}
