package user

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrSubjectRequired   = errors.New("auth subject is required")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidRole       = errors.New("invalid user role")
	ErrInvalidTenantLink = errors.New("invalid tenant link")
)
