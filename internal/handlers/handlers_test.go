package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veloz-systems/gateway/internal/audit"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// newTestHandlers wires a minimal Handlers with an "admin" role granted
// every permission, matching how cmd/gateway bootstraps the built-in
// operator identity.
func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()

	roles := auth.NewRoleStore()
	var all auth.Permission
	for _, p := range auth.AllPermissions() {
		all |= p
	}
	roles.SetRole("admin", all)

	users := auth.NewUserStore()
	users.AssignRole(AdminUserID, "admin")

	rbac := auth.NewRBAC(roles, users)

	h := &Handlers{
		JWT:           auth.NewJWTManager([]byte("test-access-secret-0123456789ab"), []byte("test-refresh-secret-0123456789a")),
		APIKeys:       auth.NewApiKeyStore(),
		RBAC:          rbac,
		Roles:         roles,
		Users:         users,
		Decorator:     auth.NewDecorator(rbac),
		Config:        NewConfigStore(map[string]interface{}{"max_order_qty": 100.0}, []string{"engine_version"}),
		Audit:         audit.NewLogger(nil, nil),
		EngineTimeout: time.Second,
		StartedAt:     time.Now(),
	}
	h.SetAdminPassword(NewAdminPassword("correct horse battery staple"))
	t.Cleanup(func() { h.Audit.Close() })
	return h
}

// authedRequest builds a RequestContext carrying an authenticated AuthInfo
// for userID, as the auth stage of the chain would have attached it.
func authedRequest(method, path string, body interface{}, params map[string]string, userID string) *gatewayhttp.RequestContext {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ctx := gatewayhttp.NewRequestContext(rec, req, params)
	if userID != "" {
		ctx.SetAuthInfo(&auth.AuthInfo{UserID: userID, AuthMethod: auth.AuthMethodJWT})
	}
	return ctx
}

func recorderOf(ctx *gatewayhttp.RequestContext) *httptest.ResponseRecorder {
	return ctx.Writer.(*httptest.ResponseRecorder)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, status int) map[string]interface{} {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return out
}
