package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDecoratorRequireAnyUnauthenticated(t *testing.T) {
	rbac := NewRBAC(NewRoleStore(), NewUserStore())
	dec := NewDecorator(rbac)

	handler := dec.RequireAny(PermReadMarket)(noopHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/market", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDecoratorRequireAnyForbidden(t *testing.T) {
	rbac := NewRBAC(NewRoleStore(), NewUserStore())
	dec := NewDecorator(rbac)

	handler := dec.RequireAny(PermAdminKeys)(noopHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	info := &AuthInfo{UserID: "user-1", AuthMethod: AuthMethodAPIKey, Permissions: map[string]struct{}{"read_market": {}}}
	req = req.WithContext(WithAuthInfo(req.Context(), info))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDecoratorRequireAnyAllowsAPIKeyPermission(t *testing.T) {
	rbac := NewRBAC(NewRoleStore(), NewUserStore())
	dec := NewDecorator(rbac)

	handler := dec.RequireAny(PermReadMarket)(noopHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/market", nil)
	info := &AuthInfo{UserID: "user-1", AuthMethod: AuthMethodAPIKey, Permissions: map[string]struct{}{"read_market": {}}}
	req = req.WithContext(WithAuthInfo(req.Context(), info))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecoratorRequireAllUsesRBACForJWT(t *testing.T) {
	roles := NewRoleStore()
	roles.SetRole("trader", PermReadMarket|PermWriteOrders)
	users := NewUserStore()
	users.AssignRole("user-1", "trader")
	rbac := NewRBAC(roles, users)
	dec := NewDecorator(rbac)

	handler := dec.RequireAll(PermReadMarket | PermWriteOrders)(noopHandler())
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	info := &AuthInfo{UserID: "user-1", AuthMethod: AuthMethodJWT, Permissions: map[string]struct{}{}}
	req = req.WithContext(WithAuthInfo(req.Context(), info))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecoratorRequireAllPartialMaskFails(t *testing.T) {
	roles := NewRoleStore()
	roles.SetRole("trader", PermReadMarket)
	users := NewUserStore()
	users.AssignRole("user-1", "trader")
	rbac := NewRBAC(roles, users)
	dec := NewDecorator(rbac)

	handler := dec.RequireAll(PermReadMarket | PermWriteOrders)(noopHandler())
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	info := &AuthInfo{UserID: "user-1", AuthMethod: AuthMethodJWT, Permissions: map[string]struct{}{}}
	req = req.WithContext(WithAuthInfo(req.Context(), info))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
