package s3proxy

import (
	"fmt"
	"strings"
)

// Resolve builds a Location from the bucket and key of a request. A bucket of
// the form profile@name selects a profile; only the first @ splits.
// No validation happens here; the storage backend rejects illegal names.
func Resolve(bucket, key string) Location {
	loc := Location{Scheme: SchemeS3, Bucket: bucket, Key: key}
	if profile, name, ok := strings.Cut(bucket, "@"); ok {
		loc.Profile = profile
		loc.Bucket = name
	}
	return loc
}

// Validate checks that the request names a bucket and a key, and that the
// bucket segment carries at most one profile separator.
func (r ObjectRequest) Validate() error {
	if r.Bucket == "" {
		return fmt.Errorf("validate request: %w: bucket cannot be empty", ErrInvalidInput)
	}

	if r.Key == "" {
		return fmt.Errorf("validate request: %w: key cannot be empty", ErrInvalidInput)
	}

	if _, name, ok := strings.Cut(r.Bucket, "@"); ok && name == "" {
		return fmt.Errorf("validate request: %w: bucket name cannot be empty", ErrInvalidInput)
	}

	if strings.Count(r.Bucket, "@") > 1 {
		return fmt.Errorf("validate request: %w: bucket %q has more than one profile separator", ErrInvalidInput, r.Bucket)
	}

	return nil
}
