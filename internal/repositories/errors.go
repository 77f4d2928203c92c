package repositories

import "errors"

// ErrNotFound is wrapped by all lookups that miss, so callers can translate
// a missing user or activation token into a not-found response with errors.Is.
var ErrNotFound = errors.New("record not found")
