package handlers

import (
	"net/http"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// GetAccount handles GET /api/account, reading the bridge's account
// snapshot from its state mirror.
func (h *Handlers) GetAccount(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadAccount) {
		return
	}
	ctx.SendJSON(http.StatusOK, h.Bridge.Mirror().Account())
}

// ListPositions handles GET /api/account/positions.
func (h *Handlers) ListPositions(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadAccount) {
		return
	}
	ctx.SendJSON(http.StatusOK, h.Bridge.Mirror().Positions())
}

// GetPosition handles GET /api/account/positions/{symbol}.
func (h *Handlers) GetPosition(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadAccount) {
		return
	}

	symbol := ctx.PathParams["symbol"]
	position, ok := h.Bridge.Mirror().Position(symbol)
	if !ok {
		ctx.SendError(http.StatusNotFound, svcerrors.KindNotFound.ShortCode(), "no position for symbol")
		return
	}
	ctx.SendJSON(http.StatusOK, position)
}
