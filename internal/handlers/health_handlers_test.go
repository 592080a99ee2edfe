package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthReturnsUnwrappedBody(t *testing.T) {
	h := newTestHandlers(t)
	ctx := authedRequest(http.MethodGet, "/health", nil, nil, "")
	h.Health(ctx)

	rec := recorderOf(ctx)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Contains(t, body, "timestamp")
	require.NotContains(t, body, "data")
}

func TestAPIHealthRequiresAuthentication(t *testing.T) {
	h := newTestHandlers(t)
	h.Bridge = newIdleBridge()

	ctx := authedRequest(http.MethodGet, "/api/health", nil, nil, "")
	h.APIHealth(ctx)
	require.Equal(t, http.StatusUnauthorized, recorderOf(ctx).Code)
}

func TestAPIHealthReportsEngineStatus(t *testing.T) {
	h := newTestHandlers(t)
	h.Bridge = newIdleBridge()

	ctx := authedRequest(http.MethodGet, "/api/health", nil, nil, AdminUserID)
	h.APIHealth(ctx)

	body := decodeEnvelope(t, recorderOf(ctx), http.StatusOK)
	data := body["data"].(map[string]interface{})
	require.Equal(t, "disconnected", data["engine_status"])
	require.Contains(t, data, "uptime_s")
	require.Contains(t, data, "runtime")
}
