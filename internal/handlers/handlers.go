// Package handlers implements the thin JSON adaptors spec 4.13 describes:
// permission check, then a bridge/state/store call, then the standard
// {"status":"success","data":{...}} or {"error":"..."} envelope. It also
// carries the features original_source/ supplements (config, account,
// role inspection) per SPEC_FULL.md.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/metrics"
	"github.com/veloz-systems/gateway/internal/audit"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/bridge"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// withEngineTimeout derives a per-call timeout from the request's context,
// matching spec 5's "every engine request has a caller-side timeout".
func withEngineTimeout(ctx *gatewayhttp.RequestContext, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Context(), d)
}

const defaultEngineTimeout = 5 * time.Second

// Handlers holds every dependency the handler methods close over. It is
// built once at startup in cmd/gateway and never mutated afterward.
type Handlers struct {
	JWT       *auth.JWTManager
	APIKeys   *auth.ApiKeyStore
	RBAC      *auth.RBAC
	Roles     *auth.RoleStore
	Users     *auth.UserStore
	Decorator *auth.Decorator

	Bridge *bridge.Bridge
	Config *ConfigStore
	Audit  *audit.Logger

	Metrics *metrics.Metrics

	EngineTimeout time.Duration
	StartedAt     time.Time

	adminPassword AdminPassword
}

// engineTimeout returns the configured per-request engine timeout, falling
// back to a sane default.
func (h *Handlers) engineTimeout() time.Duration {
	if h.EngineTimeout > 0 {
		return h.EngineTimeout
	}
	return defaultEngineTimeout
}

// requirePermission enforces spec 4.13's permission contract: 401 if
// unauthenticated, 403 with the exact "Permission denied: <perm> required"
// message if the caller's effective mask lacks want. Returns false (having
// already written the response) when the request should stop here.
func (h *Handlers) requirePermission(ctx *gatewayhttp.RequestContext, want auth.Permission) bool {
	info, ok := ctx.AuthInfo()
	if !ok {
		ctx.SendError(http.StatusUnauthorized, errors.KindUnauthenticated.ShortCode(), "authentication required")
		return false
	}
	if !h.Decorator.Allows(info, want) {
		ctx.SendError(http.StatusForbidden, errors.KindUnauthorized.ShortCode(), "Permission denied: "+want.String()+" required")
		return false
	}
	return true
}

// sendServiceError writes err as the standard error envelope, translating
// a *errors.ServiceError's Kind/HTTPStatus, or a generic 500 otherwise.
func sendServiceError(ctx *gatewayhttp.RequestContext, err error) {
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		ctx.SendError(svcErr.HTTPStatus, svcErr.Kind.ShortCode(), svcErr.Message)
		return
	}
	ctx.SendError(http.StatusInternalServerError, errors.KindInternal.ShortCode(), "internal error")
}
