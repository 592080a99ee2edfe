package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetAuditLogRequiresPermission(t *testing.T) {
	h := newTestHandlers(t)
	ctx := authedRequest(http.MethodGet, "/api/audit", nil, nil, "")
	h.GetAuditLog(ctx)
	require.Equal(t, http.StatusUnauthorized, recorderOf(ctx).Code)
}

func TestGetAuditLogReturnsRecentRecords(t *testing.T) {
	h := newTestHandlers(t)
	h.Audit.Log("auth", "login", AdminUserID, "127.0.0.1", nil)
	require.Eventually(t, func() bool { return len(h.Audit.Recent()) == 1 }, time.Second, time.Millisecond)

	ctx := authedRequest(http.MethodGet, "/api/audit", nil, nil, AdminUserID)
	h.GetAuditLog(ctx)

	body := decodeEnvelope(t, recorderOf(ctx), http.StatusOK)
	require.Len(t, body["data"].([]interface{}), 1)
}
