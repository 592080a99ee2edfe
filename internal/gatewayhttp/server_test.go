package gatewayhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Router, *Server) {
	t.Helper()
	router := NewRouter()
	require.NoError(t, router.AddRoute(http.MethodGet, "/api/orders", func(ctx *RequestContext) {
		ctx.SendJSON(http.StatusOK, map[string]string{"ok": "true"})
	}))
	require.NoError(t, router.AddRoute(http.MethodDelete, "/api/orders/{id}", func(ctx *RequestContext) {
		ctx.SendJSON(http.StatusOK, map[string]string{"id": ctx.PathParams["id"]})
	}))

	cors := DefaultCORSConfig()
	cors.AllowedOrigins = []string{"*"}
	chain := &Chain{CORS: cors}
	return router, NewServer(router, chain)
}

func TestServerServeHTTPMatchedRoute(t *testing.T) {
	_, server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerServeHTTPNotFound(t *testing.T) {
	_, server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerServeHTTPMethodNotAllowed(t *testing.T) {
	_, server := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Allow"))
}

func TestServerServeHTTPOptionsPreflightAnsweredForRegisteredPath(t *testing.T) {
	_, server := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerServeHTTPOptionsOnUnknownPathIs404(t *testing.T) {
	_, server := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerServeHTTPExtractsPathParams(t *testing.T) {
	_, server := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/xyz", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "xyz")
}
