// Package filesystem provides a local directory object reader for s3proxy.
// It serves <root>/<bucket>/<key>, or <root>/<profile>/<bucket>/<key> when
// the request selects a profile, and is intended for development and tests.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/sagarc03/s3proxy"
)

// Store provides read access to objects stored as files.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// ReadObject reads the whole file backing loc. Returns s3proxy.ErrNotFound if
// the file does not exist, is a directory, or the location cannot name a file
// under the root.
func (s *Store) ReadObject(ctx context.Context, loc s3proxy.Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, ok := objectPath(loc)
	if !ok {
		return nil, fmt.Errorf("read object %s: %w", loc.URI(), s3proxy.ErrNotFound)
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read object %s: %w", loc.URI(), s3proxy.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", name, "err", closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read object %s: %w", loc.URI(), s3proxy.ErrNotFound)
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: f}); err != nil {
		return nil, fmt.Errorf("could not read file contents: %w", err)
	}

	return buf.Bytes(), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

func objectPath(loc s3proxy.Location) (string, bool) {
	segments := []string{loc.Bucket, loc.Key}
	if loc.Profile != "" {
		segments = []string{loc.Profile, loc.Bucket, loc.Key}
	}

	for _, seg := range segments[:len(segments)-1] {
		if seg == "" || strings.Contains(seg, "/") || !isValidPath(seg) {
			return "", false
		}
	}
	if !isValidPath(loc.Key) {
		return "", false
	}

	return path.Join(segments...), true
}

// isValidPath reports whether p is a clean relative slash-separated path:
// no empty, "." or ".." segments, no leading or trailing slash, valid UTF-8,
// no NUL, control characters, DEL or backslashes.
func isValidPath(p string) bool {
	if p == "" || p[0] == '/' || strings.HasSuffix(p, "/") {
		return false
	}

	if !utf8.ValidString(p) || strings.Contains(p, `\`) {
		return false
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}
