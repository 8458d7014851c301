package reminder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"repcount/internal/domain/lifecycle"
)

// Kind selects one of the fixed message templates.
type Kind string

// Template kinds.
const (
	KindRenewal  Kind = "renewal_reminder"
	KindOverdue  Kind = "overdue_payment"
	KindInactive Kind = "inactive_checkin"
	KindWelcome  Kind = "welcome"
	KindBirthday Kind = "birthday"
)

// Kinds lists every template kind in display order.
var Kinds = []Kind{KindRenewal, KindOverdue, KindInactive, KindWelcome, KindBirthday}

// Domain errors
var (
	ErrIncompleteContext = errors.New("incomplete template context")
	ErrUnknownKind       = errors.New("unknown template kind")
)

// IncompleteContextError names the field a template needed but did not get.
// It matches ErrIncompleteContext with errors.Is.
type IncompleteContextError struct {
	Kind  Kind
	Field string
}

func (e *IncompleteContextError) Error() string {
	return fmt.Sprintf("%s: %s requires %s", ErrIncompleteContext, e.Kind, e.Field)
}

func (e *IncompleteContextError) Unwrap() error {
	return ErrIncompleteContext
}

// Context carries the values substituted into a template. Which fields are
// required depends on the kind; the rest are ignored.
type Context struct {
	MemberName    string
	GymName       string
	Phone         string
	ExpiryDate    lifecycle.Date
	OverdueDays   int
	OverdueAmount decimal.Decimal
	InactiveDays  int
	AppLink       string
	UPIID         string // optional, renewal only
}

// Valid reports whether k is a known template kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// SignOff is the closing line every message ends with.
func SignOff(gymName string) string {
	return "Team " + gymName + " 🏋️"
}

// require checks the fields the kind needs.
// POST: Returns *IncompleteContextError naming the first missing field, or nil
func (c Context) require(kind Kind) error {
	missing := func(field string) error {
		return &IncompleteContextError{Kind: kind, Field: field}
	}
	if strings.TrimSpace(c.MemberName) == "" {
		return missing("MemberName")
	}
	if strings.TrimSpace(c.GymName) == "" {
		return missing("GymName")
	}
	switch kind {
	case KindRenewal:
		if c.ExpiryDate.IsZero() {
			return missing("ExpiryDate")
		}
	case KindOverdue:
		if c.OverdueDays <= 0 {
			return missing("OverdueDays")
		}
		if !c.OverdueAmount.IsPositive() {
			return missing("OverdueAmount")
		}
	case KindInactive:
		if c.InactiveDays <= 0 {
			return missing("InactiveDays")
		}
	case KindWelcome:
		if strings.TrimSpace(c.AppLink) == "" {
			return missing("AppLink")
		}
	}
	return nil
}

// Render produces the message for kind. It never renders a message with a
// missing value: an incomplete context is a caller bug and fails the render.
// PRE: kind is one of Kinds
// POST: Returns a non-empty message containing MemberName and GymName and
// ending with SignOff(GymName), or an error
func Render(kind Kind, c Context) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := c.require(kind); err != nil {
		return "", err
	}

	var body string
	switch kind {
	case KindRenewal:
		body = fmt.Sprintf("Namaste %s! 🙏\n\nAapki %s membership %s ko expire ho rahi hai. ⏰\nApni fitness journey ko break mat hone dijiye, aaj hi renew karein! 💪",
			c.MemberName, c.GymName, lifecycle.FormatDate(c.ExpiryDate))
		if upi := strings.TrimSpace(c.UPIID); upi != "" {
			body += "\n\n💳 UPI se pay karein: " + upi
		}
	case KindOverdue:
		body = fmt.Sprintf("Namaste %s! 🙏\n\nAapki %s membership ko expire hue %d din ho gaye hain. ⚠️\nPending amount: %s\nKripya jaldi payment karke membership renew karein.",
			c.MemberName, c.GymName, c.OverdueDays, lifecycle.FormatCurrencyINR(c.OverdueAmount))
	case KindInactive:
		body = fmt.Sprintf("Hi %s! 👋\n\nHumne aapko %d din se %s mein nahi dekha. 😢\nEk workout bhi farak laata hai, aaj hi wapas aaiye! 🔥",
			c.MemberName, c.InactiveDays, c.GymName)
	case KindWelcome:
		body = fmt.Sprintf("Welcome %s! 🎉\n\n%s family mein aapka swagat hai. 💪\nApna workout plan, diet aur attendance yahan dekhein: %s",
			c.MemberName, c.GymName, c.AppLink)
	case KindBirthday:
		body = fmt.Sprintf("Happy Birthday %s! 🎂🎉\n\n%s ki taraf se aapko janamdin ki dher saari shubhkamnayein. 🥳\nAaj ka workout aapke naam! 💪",
			c.MemberName, c.GymName)
	}

	return body + "\n\n" + SignOff(c.GymName), nil
}
