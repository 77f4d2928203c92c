package services

import "errors"

// Sentinel errors shared by the services, matched by handlers with errors.Is
// to pick a response status. Anything not in this set is treated as a fatal
// request failure.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotActivated       = errors.New("account not activated")
)
