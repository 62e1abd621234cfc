package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultUserHeader is the header a reverse proxy sets to the authenticated user.
const DefaultUserHeader = "X-Auth-Request-User"

// RequestIDHeader carries the request id, generated when the client sent none.
const RequestIDHeader = "X-Request-ID"

type userKey struct{}

// UserFromContext returns the upstream-authenticated user, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok && user != ""
}

// UserMiddleware reads the user injected by the upstream authenticating proxy
// and stores it in the request context. It does not authenticate; with
// required set, requests without the header are refused with 401.
func UserMiddleware(header string, required bool) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultUserHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := r.Header.Get(header)
			if user == "" {
				if required {
					HandleError(w, ErrUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

// RequestLogger logs one line per request and tags the response with a
// request id.
func RequestLogger(userHeader string) func(http.Handler) http.Handler {
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			slog.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"user", r.Header.Get(userHeader),
				"request_id", requestID,
			)
		})
	}
}
