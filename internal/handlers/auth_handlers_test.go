package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginSucceedsWithCorrectCredentials(t *testing.T) {
	h := newTestHandlers(t)
	ctx := authedRequest(http.MethodPost, "/api/auth/login", loginRequest{
		UserID:   AdminUserID,
		Password: "correct horse battery staple",
	}, nil, "")

	h.Login(ctx)

	body := decodeEnvelope(t, recorderOf(ctx), http.StatusOK)
	data := body["data"].(map[string]interface{})
	require.NotEmpty(t, data["access_token"])
	require.NotEmpty(t, data["refresh_token"])
	require.Equal(t, "Bearer", data["token_type"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newTestHandlers(t)
	ctx := authedRequest(http.MethodPost, "/api/auth/login", loginRequest{
		UserID:   AdminUserID,
		Password: "wrong",
	}, nil, "")

	h.Login(ctx)

	rec := recorderOf(ctx)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	h := newTestHandlers(t)
	refreshToken, err := h.JWT.CreateRefreshToken(AdminUserID)
	require.NoError(t, err)

	ctx := authedRequest(http.MethodPost, "/api/auth/refresh", refreshRequest{RefreshToken: refreshToken}, nil, "")
	h.Refresh(ctx)

	body := decodeEnvelope(t, recorderOf(ctx), http.StatusOK)
	require.NotEmpty(t, body["data"].(map[string]interface{})["access_token"])
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	h := newTestHandlers(t)
	refreshToken, err := h.JWT.CreateRefreshToken(AdminUserID)
	require.NoError(t, err)
	info, ok := h.JWT.VerifyRefreshToken(refreshToken)
	require.True(t, ok)
	h.JWT.RevokeRefreshToken(info.JTI)

	ctx := authedRequest(http.MethodPost, "/api/auth/refresh", refreshRequest{RefreshToken: refreshToken}, nil, "")
	h.Refresh(ctx)

	require.Equal(t, http.StatusUnauthorized, recorderOf(ctx).Code)
}

func TestLogoutRequiresAuthentication(t *testing.T) {
	h := newTestHandlers(t)
	ctx := authedRequest(http.MethodPost, "/api/auth/logout", refreshRequest{}, nil, "")
	h.Logout(ctx)
	require.Equal(t, http.StatusUnauthorized, recorderOf(ctx).Code)
}

func TestLogoutRevokesSuppliedRefreshToken(t *testing.T) {
	h := newTestHandlers(t)
	refreshToken, err := h.JWT.CreateRefreshToken(AdminUserID)
	require.NoError(t, err)

	ctx := authedRequest(http.MethodPost, "/api/auth/logout", refreshRequest{RefreshToken: refreshToken}, nil, AdminUserID)
	h.Logout(ctx)

	decodeEnvelope(t, recorderOf(ctx), http.StatusOK)
	_, ok := h.JWT.VerifyRefreshToken(refreshToken)
	require.False(t, ok)
}

func TestCreateAPIKeyRequiresPermission(t *testing.T) {
	h := newTestHandlers(t)
	ctx := authedRequest(http.MethodPost, "/api/auth/keys", createAPIKeyRequest{Name: "bot"}, nil, "")
	h.CreateAPIKey(ctx)
	require.Equal(t, http.StatusUnauthorized, recorderOf(ctx).Code)
}

func TestCreateAndListAndRevokeAPIKey(t *testing.T) {
	h := newTestHandlers(t)

	createCtx := authedRequest(http.MethodPost, "/api/auth/keys", createAPIKeyRequest{
		Name:        "bot",
		Permissions: []string{"read_market"},
	}, nil, AdminUserID)
	h.CreateAPIKey(createCtx)
	created := decodeEnvelope(t, recorderOf(createCtx), http.StatusOK)
	keyID := created["data"].(map[string]interface{})["key_id"].(string)
	require.NotEmpty(t, keyID)

	listCtx := authedRequest(http.MethodGet, "/api/auth/keys", nil, nil, AdminUserID)
	h.ListAPIKeys(listCtx)
	listed := decodeEnvelope(t, recorderOf(listCtx), http.StatusOK)
	keys := listed["data"].([]interface{})
	require.Len(t, keys, 1)

	revokeCtx := authedRequest(http.MethodDelete, "/api/auth/keys/"+keyID, nil, map[string]string{"id": keyID}, AdminUserID)
	h.RevokeAPIKey(revokeCtx)
	decodeEnvelope(t, recorderOf(revokeCtx), http.StatusOK)

	revokeAgainCtx := authedRequest(http.MethodDelete, "/api/auth/keys/"+keyID, nil, map[string]string{"id": keyID}, AdminUserID)
	h.RevokeAPIKey(revokeAgainCtx)
	require.Equal(t, http.StatusNotFound, recorderOf(revokeAgainCtx).Code)
}
