package auth

import "errors"

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrProjectMismatch indicates the project belongs to a different tenant.
	ErrProjectMismatch = errors.New("auth: project belongs to another tenant")
	// ErrProjectNotFound indicates the project does not exist.
	ErrProjectNotFound = errors.New("auth: project not found")
)
