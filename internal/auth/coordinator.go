package auth

import (
	"net/http"
	"strings"
)

// Coordinator resolves the single AuthInfo for a request out of whichever
// credential is present. An API key, if present, is authoritative: a bad
// key never falls back to JWT, so a typo'd key can't silently downgrade a
// request to an unauthenticated one that then fails somewhere else with a
// confusing error.
type Coordinator struct {
	apiKeys  *ApiKeyStore
	jwt      *JWTManager
	disabled bool
}

// NewCoordinator builds a coordinator over the given stores.
func NewCoordinator(apiKeys *ApiKeyStore, jwt *JWTManager) *Coordinator {
	return &Coordinator{apiKeys: apiKeys, jwt: jwt}
}

// NewDisabledCoordinator builds a coordinator for VELOZ_AUTH_ENABLED=false:
// every request is granted every permission under AuthMethodDisabled,
// skipping credential checks entirely. Local development only.
func NewDisabledCoordinator() *Coordinator {
	return &Coordinator{disabled: true}
}

// Authenticate inspects headers (case-insensitively) and returns the
// resolved AuthInfo, or nil if no credential was present or valid.
func (c *Coordinator) Authenticate(headers http.Header) *AuthInfo {
	if c.disabled {
		all := AllPermissions()
		perms := make(map[string]struct{}, len(all))
		for _, p := range all {
			perms[p.String()] = struct{}{}
		}
		return &AuthInfo{UserID: "anonymous", AuthMethod: AuthMethodDisabled, Permissions: perms}
	}

	if apiKey := strings.TrimSpace(headers.Get("X-API-Key")); apiKey != "" {
		key, ok := c.apiKeys.Validate(apiKey)
		if !ok {
			return nil
		}
		return &AuthInfo{
			UserID:      key.UserID,
			AuthMethod:  AuthMethodAPIKey,
			APIKeyID:    key.KeyID,
			Permissions: key.Permissions,
		}
	}

	if token, ok := bearerToken(headers.Get("Authorization")); ok {
		info, ok := c.jwt.VerifyAccessToken(token)
		if !ok {
			return nil
		}
		return &AuthInfo{
			UserID:      info.UserID,
			AuthMethod:  AuthMethodJWT,
			APIKeyID:    info.APIKeyID,
			Permissions: map[string]struct{}{},
		}
	}

	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
