package tenant

import "errors"

var (
	// ErrNotFound is returned when a tenant does not exist
	ErrNotFound = errors.New("tenant not found")

	// ErrInactive is returned when resolution lands on a deactivated tenant
	ErrInactive = errors.New("tenant is not active")

	// ErrNameRequired is returned when the tenant name is blank
	ErrNameRequired = errors.New("tenant name is required")

	// ErrNameTooLong is returned when the tenant name exceeds the limit
	ErrNameTooLong = errors.New("tenant name exceeds maximum length")

	// ErrOwnerRequired is returned when no owner is given
	ErrOwnerRequired = errors.New("tenant owner is required")

	// ErrNotOwner is returned when a caller asserts a tenant they do not own
	ErrNotOwner = errors.New("user does not own this tenant")
)
