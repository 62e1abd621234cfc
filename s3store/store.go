// Package s3store provides an S3 object reader for s3proxy built on
// aws-sdk-go-v2. It keeps one client per profile, created lazily on first
// use, and maps missing keys and buckets to s3proxy.ErrNotFound.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/sagarc03/s3proxy"
)

// API is the subset of the S3 client used by Store.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ClientFactory builds the client for a profile. The empty profile selects
// the default credentials.
type ClientFactory func(ctx context.Context, profile string) (API, error)

// Store reads whole objects from S3.
type Store struct {
	newClient ClientFactory

	mu      sync.Mutex
	clients map[string]API
}

// New creates a Store whose clients are configured from cfg.
func New(cfg Config) *Store {
	return NewWithFactory(NewClientFactory(cfg))
}

// NewWithFactory creates a Store that obtains clients from factory.
func NewWithFactory(factory ClientFactory) *Store {
	return &Store{
		newClient: factory,
		clients:   make(map[string]API),
	}
}

// ReadObject returns the full content of the object at loc.
func (s *Store) ReadObject(ctx context.Context, loc s3proxy.Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := s.client(ctx, loc.Profile)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get object %s: %w", loc.URI(), s3proxy.ErrNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", loc.URI(), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", loc.URI(), err)
	}

	return data, nil
}

func (s *Store) client(ctx context.Context, profile string) (API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[profile]; ok {
		return c, nil
	}

	c, err := s.newClient(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("create s3 client for profile %q: %w", profile, err)
	}
	s.clients[profile] = c
	slog.Debug("created s3 client", "profile", profile)

	return c, nil
}

// isNotFound reports whether err means the key or its bucket does not exist.
// Access errors stay errors: a 403 from S3 is never treated as a missing object.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}

	return false
}
