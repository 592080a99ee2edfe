package auth

import "context"

// AuthMethod identifies which credential produced an AuthInfo.
type AuthMethod string

const (
	AuthMethodJWT      AuthMethod = "jwt"
	AuthMethodAPIKey   AuthMethod = "api_key"
	AuthMethodDisabled AuthMethod = "disabled"
)

// AuthInfo is the per-request identity the coordinator synthesizes. Its
// lifetime is the request: it is never persisted.
type AuthInfo struct {
	UserID      string
	AuthMethod  AuthMethod
	APIKeyID    string
	Permissions map[string]struct{}
}

type authInfoKey struct{}

// WithAuthInfo attaches info to ctx for downstream handlers and the RBAC
// decorators to read.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey{}, info)
}

// AuthInfoFromContext retrieves the AuthInfo attached by the auth middleware,
// if any.
func AuthInfoFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey{}).(*AuthInfo)
	return info, ok && info != nil
}
