package handlers

import (
	"net/http"
	"time"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/httputil"
	"github.com/veloz-systems/gateway/infrastructure/middleware"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// Health handles GET /health: a public, unauthenticated liveness probe.
// Its body is the bare {"status":"ok","timestamp":…} spec 6 names, not the
// standard success envelope other handlers use.
func (h *Handlers) Health(ctx *gatewayhttp.RequestContext) {
	httputil.WriteJSON(ctx.Writer, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// APIHealth handles GET /api/health: an authenticated probe that reports
// engine bridge status, uptime, and memory use. Spec 6 lists its
// permission as a bare "read", not one of the nine named bits, so any
// authenticated caller qualifies.
func (h *Handlers) APIHealth(ctx *gatewayhttp.RequestContext) {
	if _, ok := ctx.AuthInfo(); !ok {
		ctx.SendError(http.StatusUnauthorized, svcerrors.KindUnauthenticated.ShortCode(), "authentication required")
		return
	}

	engineStatus := "disconnected"
	if h.Bridge != nil && h.Bridge.Connected() {
		engineStatus = "connected"
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"engine_status": engineStatus,
		"uptime_s":      time.Since(h.StartedAt).Seconds(),
		"runtime":       middleware.RuntimeStats(),
	})
}
