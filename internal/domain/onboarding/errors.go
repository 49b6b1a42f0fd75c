package onboarding

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("onboarding progress not found")
	ErrUserRequired   = errors.New("user is required")
	ErrUnknownStatus  = errors.New("unknown onboarding status")
	ErrInvalidTenant  = errors.New("invalid tenant binding")
	ErrTenantNotBound = errors.New("cannot complete onboarding without a bound tenant")
)

// TransitionError reports an illegal state-machine move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal onboarding transition from %q to %q", e.From, e.To)
}
