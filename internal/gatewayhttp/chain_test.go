package gatewayhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateLimiter struct {
	allow     bool
	remaining int
}

func (f *fakeRateLimiter) Check(identity string) RateLimitResult {
	return RateLimitResult{Allowed: f.allow, Remaining: f.remaining, ResetAt: 1000, RetryAfter: "1"}
}

type fakeAuditLogger struct {
	calls []string
}

func (f *fakeAuditLogger) Log(eventType, action, userID, ip string, details map[string]interface{}) {
	f.calls = append(f.calls, eventType+":"+action)
}

func newChainTestRoute(handler HandlerFunc) *Route {
	return &Route{Method: http.MethodGet, Pattern: "/api/orders", Handler: handler}
}

func TestChainWrapRunsHandlerOnSuccess(t *testing.T) {
	var handlerCalled bool
	chain := &Chain{}
	wrapped := chain.Wrap(newChainTestRoute(func(ctx *RequestContext) { handlerCalled = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	wrapped(NewRequestContext(rec, req, nil))

	assert.True(t, handlerCalled)
}

func TestChainWrapRateLimitDenies(t *testing.T) {
	var handlerCalled bool
	limiter := &fakeRateLimiter{allow: false}
	chain := &Chain{RateLimiter: limiter}
	wrapped := chain.Wrap(newChainTestRoute(func(ctx *RequestContext) { handlerCalled = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	wrapped(NewRequestContext(rec, req, nil))

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestChainWrapRateLimitSetsHeaders(t *testing.T) {
	limiter := &fakeRateLimiter{allow: true, remaining: 7}
	chain := &Chain{RateLimiter: limiter}
	wrapped := chain.Wrap(newChainTestRoute(func(ctx *RequestContext) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	wrapped(NewRequestContext(rec, req, nil))

	assert.Equal(t, "7", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestChainWrapCORSPreflightShortCircuits(t *testing.T) {
	var handlerCalled bool
	cors := DefaultCORSConfig()
	cors.AllowedOrigins = []string{"*"}
	chain := &Chain{CORS: cors}
	wrapped := chain.Wrap(newChainTestRoute(func(ctx *RequestContext) { handlerCalled = true }))

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	wrapped(NewRequestContext(rec, req, nil))

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChainWrapAuditLogsRequest(t *testing.T) {
	audit := &fakeAuditLogger{}
	chain := &Chain{Audit: audit}
	wrapped := chain.Wrap(newChainTestRoute(func(ctx *RequestContext) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	wrapped(NewRequestContext(rec, req, nil))

	require.Len(t, audit.calls, 1)
	assert.Equal(t, "http_request:GET /api/orders", audit.calls[0])
}

func TestChainWrapNilDependenciesPassThrough(t *testing.T) {
	var handlerCalled bool
	chain := &Chain{}
	wrapped := chain.Wrap(newChainTestRoute(func(ctx *RequestContext) { handlerCalled = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	wrapped(NewRequestContext(rec, req, nil))

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
}
