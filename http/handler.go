package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/s3proxy"
)

// Service is the object pipeline behind the handler. *s3proxy.ProxyService
// implements it.
type Service interface {
	Get(ctx context.Context, req s3proxy.ObjectRequest) (s3proxy.Result, error)
}

// MetricsRecorder receives per-request outcomes and serves the exposition
// endpoint. metrics.Metrics implements it.
type MetricsRecorder interface {
	ObserveOutcome(outcome string)
	AddBytesServed(n int)
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Request outcomes reported to a MetricsRecorder.
const (
	OutcomeInline       = "inline"
	OutcomeAttachment   = "attachment"
	OutcomeRejected     = "rejected"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeBackendError = "backend_error"
	OutcomeCanceled     = "canceled"
	OutcomeError        = "error"
)

// CORSConfig configures the optional CORS middleware.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// Metadata describes the running application on the index endpoints.
type Metadata struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	Description      string `json:"description"`
	RepositoryURL    string `json:"repository_url"`
	DocumentationURL string `json:"documentation_url"`
}

// Index is the body of the index endpoints.
type Index struct {
	Metadata Metadata `json:"metadata"`
}

type HandlerConfig struct {
	PathPrefix  string // External route prefix, e.g. /s3proxy
	Metadata    Metadata
	UserHeader  string // Header carrying the upstream-authenticated user
	RequireUser bool
	CORS        CORSConfig
	Metrics     MetricsRecorder // Optional
	MetricsPath string
}

// Handler provides HTTP handlers for object retrieval.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with all routes configured.
//
//	GET /                               internal metadata
//	GET {metrics path}                  Prometheus metrics, when a recorder is set
//	GET {prefix}/                       external metadata
//	GET {prefix}/s3/{bucket}/{key...}   object contents
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(h.config.UserHeader))

	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", h.handleIndex)

	if h.config.Metrics != nil {
		metricsPath := h.config.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Method(http.MethodGet, metricsPath, h.config.Metrics.Handler())
	}

	objects := func(r chi.Router) {
		r.Use(UserMiddleware(h.config.UserHeader, h.config.RequireUser))
		r.Get("/s3/{bucket}", h.handleObject)
		r.Get("/s3/{bucket}/*", h.handleObject)
	}

	prefix := strings.TrimRight(h.config.PathPrefix, "/")
	if prefix == "" {
		r.Group(objects)
	} else {
		r.Route(prefix, func(r chi.Router) {
			r.Get("/", h.handleIndex)
			r.Group(objects)
		})
	}

	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, Index{Metadata: h.config.Metadata})
}

func (h *Handler) handleObject(w http.ResponseWriter, r *http.Request) {
	req := s3proxy.ObjectRequest{
		Bucket: pathParam(r, "bucket"),
		Key:    pathParam(r, "*"),
	}

	result, err := h.service.Get(r.Context(), req)
	if err != nil {
		h.observe(outcomeForError(err), 0)
		HandleError(w, err)
		return
	}

	if result.Decision.IsRejected() {
		h.observe(OutcomeRejected, 0)
		RejectedResponse(result.Decision.MimeType).Write(w)
		return
	}

	resp := BuildResponse(result.Decision, result.Fetch, result.Location.URI())

	switch {
	case !result.Fetch.Found:
		h.observe(OutcomeNotFound, 0)
	case result.Decision.Disposition == s3proxy.DispositionAttachment:
		h.observe(OutcomeAttachment, len(resp.Body))
	default:
		h.observe(OutcomeInline, len(resp.Body))
	}

	resp.Write(w)
}

func (h *Handler) observe(outcome string, bytesServed int) {
	if h.config.Metrics == nil {
		return
	}
	h.config.Metrics.ObserveOutcome(outcome)
	if bytesServed > 0 {
		h.config.Metrics.AddBytesServed(bytesServed)
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, s3proxy.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, s3proxy.ErrBackend):
		return OutcomeBackendError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// pathParam returns a route parameter decoded exactly once. chi matches on
// the raw path when the request contains escapes such as %2F, so those
// parameters still need unescaping.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
