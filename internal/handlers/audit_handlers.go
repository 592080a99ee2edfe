package handlers

import (
	"net/http"

	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// GetAuditLog handles GET /api/audit: an additive read path (spec 4.12 only
// specifies the write contract) exposing the most recently flushed records.
func (h *Handlers) GetAuditLog(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminUsers) {
		return
	}
	ctx.SendJSON(http.StatusOK, h.Audit.Recent())
}
