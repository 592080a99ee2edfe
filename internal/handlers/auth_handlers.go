package handlers

import (
	"net/http"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/middleware"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/cryptoprim"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// AdminUserID is the single built-in operator identity login authenticates
// against, per spec 6's `{"user_id":"admin","password":<VELOZ_ADMIN_PASSWORD>}`
// example flow.
const AdminUserID = "admin"

// AdminPassword is set at wiring time from VELOZ_ADMIN_PASSWORD.
type AdminPassword struct {
	value []byte
}

// NewAdminPassword wraps the configured admin password for constant-time
// comparison.
func NewAdminPassword(password string) AdminPassword {
	return AdminPassword{value: []byte(password)}
}

func (h *Handlers) checkAdminPassword(password string) bool {
	if len(h.adminPassword.value) == 0 {
		return false
	}
	return cryptoprim.ConstantTimeEqual(h.adminPassword.value, []byte(password))
}

// SetAdminPassword installs the admin credential used by Login.
func (h *Handlers) SetAdminPassword(p AdminPassword) {
	h.adminPassword = p
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(ctx *gatewayhttp.RequestContext) {
	var req loginRequest
	if err := ctx.DecodeJSON(&req); err != nil {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "invalid request body")
		return
	}

	if req.UserID != AdminUserID || !h.checkAdminPassword(req.Password) {
		ctx.SendError(http.StatusUnauthorized, svcerrors.KindUnauthenticated.ShortCode(), "invalid credentials")
		return
	}

	access, err := h.JWT.CreateAccessToken(req.UserID, "")
	if err != nil {
		sendServiceError(ctx, svcerrors.Internal("failed to issue access token", err))
		return
	}
	refresh, err := h.JWT.CreateRefreshToken(req.UserID)
	if err != nil {
		sendServiceError(ctx, svcerrors.Internal("failed to issue refresh token", err))
		return
	}

	ctx.SendJSON(http.StatusOK, tokenPairResponse{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh.
func (h *Handlers) Refresh(ctx *gatewayhttp.RequestContext) {
	var req refreshRequest
	if err := ctx.DecodeJSON(&req); err != nil || req.RefreshToken == "" {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "invalid request body")
		return
	}

	info, ok := h.JWT.VerifyRefreshToken(req.RefreshToken)
	if !ok {
		ctx.SendError(http.StatusUnauthorized, svcerrors.KindUnauthenticated.ShortCode(), "invalid or expired refresh token")
		return
	}

	access, err := h.JWT.CreateAccessToken(info.UserID, info.APIKeyID)
	if err != nil {
		sendServiceError(ctx, svcerrors.Internal("failed to issue access token", err))
		return
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{"access_token": access, "token_type": "Bearer"})
}

// Logout handles POST /api/auth/logout, revoking the refresh token's jti.
func (h *Handlers) Logout(ctx *gatewayhttp.RequestContext) {
	if _, ok := ctx.AuthInfo(); !ok {
		ctx.SendError(http.StatusUnauthorized, svcerrors.KindUnauthenticated.ShortCode(), "authentication required")
		return
	}

	var req refreshRequest
	if err := ctx.DecodeJSON(&req); err == nil && req.RefreshToken != "" {
		if info, ok := h.JWT.VerifyRefreshToken(req.RefreshToken); ok {
			h.JWT.RevokeRefreshToken(info.JTI)
		}
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{"logged_out": true})
}

type createAPIKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// CreateAPIKey handles POST /api/auth/keys.
func (h *Handlers) CreateAPIKey(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminKeys) {
		return
	}
	info, _ := ctx.AuthInfo()

	var req createAPIKeyRequest
	if err := ctx.DecodeJSON(&req); err != nil {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "invalid request body")
		return
	}
	req.Name = middleware.SanitizeInput(req.Name)

	keyID, rawKey, err := h.APIKeys.Create(info.UserID, req.Name, req.Permissions)
	if err != nil {
		sendServiceError(ctx, err)
		return
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{
		"key_id": keyID,
		"key":    rawKey,
		"name":   req.Name,
	})
}

// ListAPIKeys handles GET /api/auth/keys.
func (h *Handlers) ListAPIKeys(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminKeys) {
		return
	}
	info, _ := ctx.AuthInfo()

	keys := h.APIKeys.List(info.UserID)
	out := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		perms := make([]string, 0, len(k.Permissions))
		for p := range k.Permissions {
			perms = append(perms, p)
		}
		out = append(out, map[string]interface{}{
			"key_id":       k.KeyID,
			"name":         k.Name,
			"permissions":  perms,
			"created_at":   k.CreatedAt,
			"last_used_at": k.LastUsedAt,
			"revoked":      k.Revoked,
		})
	}
	ctx.SendJSON(http.StatusOK, out)
}

// RevokeAPIKey handles DELETE /api/auth/keys/{id}.
func (h *Handlers) RevokeAPIKey(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminKeys) {
		return
	}

	keyID := ctx.PathParams["id"]
	if keyID == "" || !middleware.IsValidHex(keyID) {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "malformed key id")
		return
	}
	if !h.APIKeys.Revoke(keyID) {
		ctx.SendError(http.StatusNotFound, svcerrors.KindNotFound.ShortCode(), "no such API key")
		return
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{"key_id": keyID, "revoked": true})
}
