package domain

import "errors"

// Sentinel errors for the application. Handlers map these onto HTTP status
// codes; services wrap them with context via %w.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("forbidden")
	ErrNotConnected = errors.New("principals are not connected")
	ErrInvalidInput = errors.New("invalid input")
	ErrGone         = errors.New("message no longer available")
	ErrConflict     = errors.New("resource already exists")
	ErrInternal     = errors.New("internal server error")
)
