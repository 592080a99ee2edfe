package gatewayhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSApplyAllowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	ctx := NewRequestContext(rec, req, nil)

	handled := cfg.apply(ctx)
	assert.False(t, handled)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSApplyDisallowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	rec := httptest.NewRecorder()
	ctx := NewRequestContext(rec, req, nil)

	cfg.apply(ctx)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSApplyWildcardOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "https://anything.example.net")
	rec := httptest.NewRecorder()
	ctx := NewRequestContext(rec, req, nil)

	cfg.apply(ctx)
	assert.Equal(t, "https://anything.example.net", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSApplySubdomainWildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{".example.com"}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "https://trading.example.com")
	rec := httptest.NewRecorder()
	ctx := NewRequestContext(rec, req, nil)

	cfg.apply(ctx)
	assert.Equal(t, "https://trading.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSApplySubdomainWildcardDoesNotMatchBareDomain(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{".example.com"}

	assert.False(t, cfg.isOriginAllowed("https://example.com"))
}

func TestCORSApplyPreflightHandled(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	ctx := NewRequestContext(rec, req, nil)

	handled := cfg.apply(ctx)
	assert.True(t, handled)
	assert.True(t, ctx.Responded())
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSApplyNoOriginHeader(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	ctx := NewRequestContext(rec, req, nil)

	cfg.apply(ctx)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
