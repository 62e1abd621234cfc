package http

import "errors"

// ErrUnauthorized is returned when a required upstream identity is missing.
var ErrUnauthorized = errors.New("unauthorized")
