package s3proxy

import "errors"

var (
	// ErrNotFound is returned when an object does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when request validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the content type policy rejects an object
	ErrForbidden = errors.New("forbidden")
	// ErrBackend wraps every storage failure other than a missing object
	ErrBackend = errors.New("storage backend error")
)
