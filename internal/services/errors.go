package services

import "errors"

// Failure taxonomy shared by the catalog and the share registry. Handlers map
// these onto HTTP statuses; everything else is treated as internal.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrShareExpired    = errors.New("share link expired")
	ErrUpstream        = errors.New("object store unavailable")
)
