package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/s3proxy"
	s3proxyhttp "github.com/sagarc03/s3proxy/http"
)

// MockService is a mock implementation of http.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, req s3proxy.ObjectRequest) (s3proxy.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(s3proxy.Result), args.Error(1)
}

// MockMetrics is a mock implementation of http.MetricsRecorder
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) ObserveOutcome(outcome string) {
	m.Called(outcome)
}

func (m *MockMetrics) AddBytesServed(n int) {
	m.Called(n)
}

func (m *MockMetrics) Middleware(next http.Handler) http.Handler {
	return next
}

func (m *MockMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
}

// MockObjectReader is a mock implementation of s3proxy.ObjectReader
type MockObjectReader struct {
	mock.Mock
}

func (m *MockObjectReader) ReadObject(ctx context.Context, loc s3proxy.Location) ([]byte, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func result(bucket, key string, d s3proxy.Decision, f s3proxy.FetchResult) s3proxy.Result {
	return s3proxy.Result{Location: s3proxy.Resolve(bucket, key), Decision: d, Fetch: f}
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

// newPipeline wires the handler to a real ProxyService backed by a mocked reader.
func newPipeline(t *testing.T, policy s3proxy.PolicyConfig) (http.Handler, *MockObjectReader) {
	t.Helper()
	reader := new(MockObjectReader)
	service, err := s3proxy.NewProxyService(s3proxy.NewPolicy(policy, s3proxy.DefaultMimeTable()), reader, s3proxy.ServiceConfig{})
	require.NoError(t, err)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)
	return handler.Router(), reader
}

func TestHandler_HandleObject_Inline(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)

	content := []byte("%PDF-1.7 body")
	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "bucket", Key: "docs/report.pdf"}).Return(
		result("bucket", "docs/report.pdf", s3proxy.Inline("application/pdf"), s3proxy.Found(content)), nil,
	)

	rec := serve(handler.Router(), "/s3proxy/s3/bucket/docs/report.pdf")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, fmt.Sprint(len(content)), rec.Header().Get("Content-Length"))
	assert.Equal(t, content, rec.Body.Bytes())
	service.AssertExpectations(t)
}

func TestHandler_HandleObject_Attachment(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)

	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "bucket", Key: "archive.zip"}).Return(
		result("bucket", "archive.zip", s3proxy.Attachment("application/zip"), s3proxy.Found([]byte("PK\x03\x04"))), nil,
	)

	rec := serve(handler.Router(), "/s3proxy/s3/bucket/archive.zip")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04", rec.Body.String())
}

func TestHandler_HandleObject_NotFound(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)

	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "bucket", Key: "missing.txt"}).Return(
		result("bucket", "missing.txt", s3proxy.Inline("text/plain"), s3proxy.NotFound), nil,
	)

	rec := serve(handler.Router(), "/s3proxy/s3/bucket/missing.txt")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"message":"Not found: s3://bucket/missing.txt"}`, rec.Body.String())
}

func TestHandler_HandleObject_Rejected(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)

	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "bucket", Key: "page.html"}).Return(
		result("bucket", "page.html", s3proxy.Reject("text/html"), s3proxy.NotFound), nil,
	)

	rec := serve(handler.Router(), "/s3proxy/s3/bucket/page.html")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, `{"message":"Content type not permitted: text/html"}`, rec.Body.String())
}

func TestHandler_HandleObject_BackendError(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)

	service.On("Get", mock.Anything, mock.Anything).Return(
		s3proxy.Result{}, fmt.Errorf("get object: %w", s3proxy.ErrBackend),
	)

	rec := serve(handler.Router(), "/s3proxy/s3/bucket/file.txt")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"message":"Storage backend error"}`, rec.Body.String())
}

func TestHandler_HandleObject_ProfileAndEncodedKey(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   s3proxy.ObjectRequest
	}{
		{
			name:   "profile",
			target: "/s3proxy/s3/prod@bucket/a/b.pdf",
			want:   s3proxy.ObjectRequest{Bucket: "prod@bucket", Key: "a/b.pdf"},
		},
		{
			name:   "encoded slash",
			target: "/s3proxy/s3/bucket/a%2Fb.pdf",
			want:   s3proxy.ObjectRequest{Bucket: "bucket", Key: "a/b.pdf"},
		},
		{
			name:   "encoded space",
			target: "/s3proxy/s3/bucket/my%20file.pdf",
			want:   s3proxy.ObjectRequest{Bucket: "bucket", Key: "my file.pdf"},
		},
		{
			name:   "encoded percent",
			target: "/s3proxy/s3/bucket/100%25.txt",
			want:   s3proxy.ObjectRequest{Bucket: "bucket", Key: "100%.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, service)

			service.On("Get", mock.Anything, tt.want).Return(
				result(tt.want.Bucket, tt.want.Key, s3proxy.Inline("application/pdf"), s3proxy.Found([]byte("x"))), nil,
			)

			rec := serve(handler.Router(), tt.target)

			assert.Equal(t, http.StatusOK, rec.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_HandleObject_EmptyPrefix(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{}, service)

	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "bucket", Key: "a.txt"}).Return(
		result("bucket", "a.txt", s3proxy.Inline("text/plain"), s3proxy.Found([]byte("a"))), nil,
	)

	rec := serve(handler.Router(), "/s3/bucket/a.txt")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a", rec.Body.String())
}

func TestHandler_Pipeline_InlineAndAttachment(t *testing.T) {
	router, reader := newPipeline(t, s3proxy.DefaultPolicyConfig())

	reader.On("ReadObject", mock.Anything, s3proxy.Resolve("bucket", "doc.pdf")).Return([]byte("%PDF"), nil)
	reader.On("ReadObject", mock.Anything, s3proxy.Resolve("bucket", "data.tar.gz")).Return([]byte{0x1f, 0x8b}, nil)

	rec := serve(router, "/s3proxy/s3/bucket/doc.pdf")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	rec = serve(router, "/s3proxy/s3/bucket/data.tar.gz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-tar", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte{0x1f, 0x8b}, rec.Body.Bytes())
}

func TestHandler_Pipeline_EmptyKey(t *testing.T) {
	router, reader := newPipeline(t, s3proxy.DefaultPolicyConfig())

	for _, target := range []string{"/s3proxy/s3/bucket/", "/s3proxy/s3/bucket"} {
		t.Run(target, func(t *testing.T) {
			rec := serve(router, target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"message":"Invalid bucket or key"}`, rec.Body.String())
		})
	}

	reader.AssertNotCalled(t, "ReadObject", mock.Anything, mock.Anything)
}

func TestHandler_Pipeline_MalformedProfile(t *testing.T) {
	router, reader := newPipeline(t, s3proxy.DefaultPolicyConfig())

	rec := serve(router, "/s3proxy/s3/a@b@c/key.txt")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	reader.AssertNotCalled(t, "ReadObject", mock.Anything, mock.Anything)
}

func TestHandler_Pipeline_DisallowedIsForbiddenEvenWhenMissing(t *testing.T) {
	cfg := s3proxy.DefaultPolicyConfig()
	cfg.Disallow = []string{"text/html"}
	router, reader := newPipeline(t, cfg)

	rec := serve(router, "/s3proxy/s3/bucket/missing.html")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, `{"message":"Content type not permitted: text/html"}`, rec.Body.String())
	reader.AssertNotCalled(t, "ReadObject", mock.Anything, mock.Anything)
}

func TestHandler_Pipeline_NotFoundWithProfile(t *testing.T) {
	router, reader := newPipeline(t, s3proxy.DefaultPolicyConfig())

	reader.On("ReadObject", mock.Anything, s3proxy.Resolve("prod@bucket", "a/b.txt")).Return(nil, s3proxy.ErrNotFound)

	rec := serve(router, "/s3proxy/s3/prod@bucket/a/b.txt")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `{"message":"Not found: s3://prod@bucket/a/b.txt"}`, rec.Body.String())
}

func TestHandler_Pipeline_Idempotent(t *testing.T) {
	router, reader := newPipeline(t, s3proxy.DefaultPolicyConfig())

	reader.On("ReadObject", mock.Anything, s3proxy.Resolve("bucket", "a.png")).Return([]byte("PNG"), nil)

	first := serve(router, "/s3proxy/s3/bucket/a.png")
	second := serve(router, "/s3proxy/s3/bucket/a.png")

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Header().Get("Content-Type"), second.Header().Get("Content-Type"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	reader.AssertNumberOfCalls(t, "ReadObject", 2)
}

func TestHandler_Index(t *testing.T) {
	service := new(MockService)
	metadata := s3proxyhttp.Metadata{
		Name:             "s3proxy",
		Version:          "1.2.3",
		Description:      "Serve S3 objects over HTTP",
		RepositoryURL:    "https://github.com/sagarc03/s3proxy",
		DocumentationURL: "https://github.com/sagarc03/s3proxy#readme",
	}
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy", Metadata: metadata}, service)
	router := handler.Router()

	for _, target := range []string{"/", "/s3proxy/", "/s3proxy"} {
		t.Run(target, func(t *testing.T) {
			rec := serve(router, target)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var index s3proxyhttp.Index
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&index))
			assert.Equal(t, metadata, index.Metadata)
		})
	}

	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_UnknownRoute(t *testing.T) {
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, new(MockService))

	rec := serve(handler.Router(), "/elsewhere")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy"}, new(MockService))

	req := httptest.NewRequest("PUT", "/s3proxy/s3/bucket/a.txt", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_RequireUser(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy", RequireUser: true}, service)

	rec := serve(handler.Router(), "/s3proxy/s3/bucket/a.txt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_RequireUser_IndexStaysPublic(t *testing.T) {
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy", RequireUser: true}, new(MockService))

	assert.Equal(t, http.StatusOK, serve(handler.Router(), "/s3proxy/").Code)
	assert.Equal(t, http.StatusOK, serve(handler.Router(), "/").Code)
}

func TestHandler_Metrics(t *testing.T) {
	service := new(MockService)
	metrics := new(MockMetrics)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy", Metrics: metrics}, service)
	router := handler.Router()

	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "b", Key: "a.txt"}).Return(
		result("b", "a.txt", s3proxy.Inline("text/plain"), s3proxy.Found([]byte("hello"))), nil,
	)
	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "b", Key: "a.zip"}).Return(
		result("b", "a.zip", s3proxy.Attachment("application/zip"), s3proxy.Found([]byte("PK"))), nil,
	)
	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "b", Key: "gone.txt"}).Return(
		result("b", "gone.txt", s3proxy.Inline("text/plain"), s3proxy.NotFound), nil,
	)
	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "b", Key: "x.html"}).Return(
		result("b", "x.html", s3proxy.Reject("text/html"), s3proxy.NotFound), nil,
	)
	service.On("Get", mock.Anything, s3proxy.ObjectRequest{Bucket: "b", Key: "err.txt"}).Return(
		s3proxy.Result{}, s3proxy.ErrBackend,
	)

	metrics.On("ObserveOutcome", s3proxyhttp.OutcomeInline).Once()
	metrics.On("AddBytesServed", 5).Once()
	metrics.On("ObserveOutcome", s3proxyhttp.OutcomeAttachment).Once()
	metrics.On("AddBytesServed", 2).Once()
	metrics.On("ObserveOutcome", s3proxyhttp.OutcomeNotFound).Once()
	metrics.On("ObserveOutcome", s3proxyhttp.OutcomeRejected).Once()
	metrics.On("ObserveOutcome", s3proxyhttp.OutcomeBackendError).Once()

	for _, key := range []string{"a.txt", "a.zip", "gone.txt", "x.html", "err.txt"} {
		serve(router, "/s3proxy/s3/b/"+key)
	}

	metrics.AssertExpectations(t)

	rec := serve(router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics\n", rec.Body.String())
}

func TestHandler_Pipeline_CanceledRead(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		readErr  error
		during   func(ctx context.Context, cancel context.CancelFunc)
		wantCode int
		wantBody string
		outcome  string
	}{
		{
			name:     "reader reports canceled",
			key:      "a.txt",
			readErr:  context.Canceled,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"message":"Request canceled"}`,
			outcome:  s3proxyhttp.OutcomeCanceled,
		},
		{
			name:     "client disconnects mid read",
			key:      "b.txt",
			readErr:  errors.New("read tcp: use of closed network connection"),
			during:   func(_ context.Context, cancel context.CancelFunc) { cancel() },
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"message":"Request canceled"}`,
			outcome:  s3proxyhttp.OutcomeCanceled,
		},
		{
			name:     "request deadline passes mid read",
			key:      "c.txt",
			readErr:  context.DeadlineExceeded,
			during:   func(ctx context.Context, _ context.CancelFunc) { <-ctx.Done() },
			wantCode: http.StatusGatewayTimeout,
			wantBody: `{"message":"Request timed out"}`,
			outcome:  s3proxyhttp.OutcomeCanceled,
		},
		{
			name:     "backend failure",
			key:      "d.txt",
			readErr:  errors.New("connection refused"),
			wantCode: http.StatusBadGateway,
			wantBody: `{"message":"Storage backend error"}`,
			outcome:  s3proxyhttp.OutcomeBackendError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockObjectReader)
			metrics := new(MockMetrics)
			service, err := s3proxy.NewProxyService(
				s3proxy.NewPolicy(s3proxy.DefaultPolicyConfig(), s3proxy.DefaultMimeTable()),
				reader, s3proxy.ServiceConfig{},
			)
			require.NoError(t, err)
			router := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{PathPrefix: "/s3proxy", Metrics: metrics}, service).Router()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			call := reader.On("ReadObject", mock.Anything, s3proxy.Resolve("bucket", tt.key)).Return(nil, tt.readErr)
			if tt.during != nil {
				call.Run(func(args mock.Arguments) { tt.during(args.Get(0).(context.Context), cancel) })
			}
			metrics.On("ObserveOutcome", tt.outcome).Once()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", "/s3proxy/s3/bucket/"+tt.key, nil).WithContext(ctx))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			metrics.AssertExpectations(t)
			reader.AssertExpectations(t)
		})
	}
}

func TestHandler_CORS(t *testing.T) {
	service := new(MockService)
	handler := s3proxyhttp.NewHandler(&s3proxyhttp.HandlerConfig{
		PathPrefix: "/s3proxy",
		CORS: s3proxyhttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedMethods: []string{"GET"},
		},
	}, service)

	service.On("Get", mock.Anything, mock.Anything).Return(
		result("b", "a.txt", s3proxy.Inline("text/plain"), s3proxy.Found([]byte("a"))), nil,
	)

	req := httptest.NewRequest("GET", "/s3proxy/s3/b/a.txt", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
