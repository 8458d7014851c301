package orchestrators

import (
	"errors"
	"fmt"
)

// Orchestrator errors. Domain validation failures are wrapped in
// ErrInvalidInput so transports can tell them from infrastructure faults.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicatePhone    = errors.New("a member with this phone number already exists")
	ErrMemberArchived    = errors.New("member is archived")
	ErrMembershipExpired = errors.New("membership has expired")
	ErrSlugTaken         = errors.New("a gym with this name already exists")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
