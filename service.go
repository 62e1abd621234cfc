package s3proxy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ObjectReader defines the interface for reading whole objects from a storage
// backend. Implementations must be safe for concurrent use.
type ObjectReader interface {
	// ReadObject returns the full content of the object at loc.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - loc: The resolved object location, including the optional profile
	//
	// Returns:
	//   - []byte: The object content
	//   - error: ErrNotFound if the object (or its bucket) does not exist,
	//     any other error for credential, network or backend failures
	ReadObject(ctx context.Context, loc Location) ([]byte, error)
}

// FetchObserver receives the outcome and latency of every storage read.
type FetchObserver interface {
	ObserveFetch(result string, elapsed time.Duration)
}

// Fetch results reported to a FetchObserver.
const (
	FetchFound    = "found"
	FetchNotFound = "not_found"
	FetchError    = "error"
	FetchCanceled = "canceled"
)

// Fetcher adapts an ObjectReader to an explicit Found/NotFound result so that
// callers never branch on reader error types for normal control flow.
type Fetcher struct {
	reader   ObjectReader
	observer FetchObserver
}

func NewFetcher(reader ObjectReader, observer FetchObserver) *Fetcher {
	return &Fetcher{reader: reader, observer: observer}
}

// Fetch reads the object at loc. A missing object yields NotFound and a nil
// error. A read cut short by ctx returns the context error without ErrBackend.
// Every other reader failure is returned wrapped in ErrBackend.
func (f *Fetcher) Fetch(ctx context.Context, loc Location) (FetchResult, error) {
	start := time.Now()

	data, err := f.reader.ReadObject(ctx, loc)
	switch {
	case err == nil:
		f.observe(FetchFound, start)
		return Found(data), nil
	case errors.Is(err, ErrNotFound):
		f.observe(FetchNotFound, start)
		return NotFound, nil
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		f.observe(FetchCanceled, start)
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return FetchResult{}, fmt.Errorf("fetch %s: %w", loc.URI(), err)
	default:
		f.observe(FetchError, start)
		return FetchResult{}, fmt.Errorf("fetch %s: %w: %w", loc.URI(), ErrBackend, err)
	}
}

func (f *Fetcher) observe(result string, start time.Time) {
	if f.observer != nil {
		f.observer.ObserveFetch(result, time.Since(start))
	}
}

// ServiceConfig holds configuration options for ProxyService.
type ServiceConfig struct {
	Observer FetchObserver // Optional, receives fetch outcomes
}

// ProxyService resolves, classifies and fetches objects for a single request.
type ProxyService struct {
	policy  *Policy
	fetcher *Fetcher
}

func NewProxyService(policy *Policy, reader ObjectReader, cfg ServiceConfig) (*ProxyService, error) {
	if policy == nil {
		return nil, errors.New("new proxy service: policy cannot be nil")
	}
	if reader == nil {
		return nil, errors.New("new proxy service: object reader cannot be nil")
	}
	return &ProxyService{
		policy:  policy,
		fetcher: NewFetcher(reader, cfg.Observer),
	}, nil
}

// Get serves one object request.
//
// The method performs the following steps:
//  1. Validates the request (non-empty bucket and key, at most one @)
//  2. Resolves the storage location
//  3. Classifies the key against the content policy
//  4. Fetches the object, unless the policy rejected it
//
// A rejected key is never fetched: the result carries the Reject decision
// and a NotFound fetch, and the caller answers 403 whether or not the object
// exists.
//
// Error types returned:
//   - ErrInvalidInput: the request failed validation
//   - ErrBackend: the storage backend failed for a reason other than a missing object
//   - context.Canceled or context.DeadlineExceeded: ctx ended before or during the fetch
func (s *ProxyService) Get(ctx context.Context, req ObjectRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("get object: %w", err)
	}

	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("get object: %w", err)
	}

	loc := Resolve(req.Bucket, req.Key)
	decision := s.policy.Classify(req.Key)

	if decision.IsRejected() {
		return Result{Location: loc, Decision: decision, Fetch: NotFound}, nil
	}

	fetched, err := s.fetcher.Fetch(ctx, loc)
	if err != nil {
		return Result{}, fmt.Errorf("get object: %w", err)
	}

	return Result{Location: loc, Decision: decision, Fetch: fetched}, nil
}

// Classify exposes the service's policy decision for key.
func (s *ProxyService) Classify(key string) Decision {
	return s.policy.Classify(key)
}
