package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// GetMarket handles GET /api/market, querying the engine for the latest
// market snapshot. The symbol query parameter, if present, is forwarded.
func (h *Handlers) GetMarket(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadMarket) {
		return
	}

	params := map[string]interface{}{}
	if symbol := ctx.Query.Get("symbol"); symbol != "" {
		params["symbol"] = symbol
	}

	requestCtx, cancel := withEngineTimeout(ctx, h.engineTimeout())
	defer cancel()

	raw, err := h.Bridge.Query(requestCtx, "market", params)
	if err != nil {
		sendServiceError(ctx, err)
		return
	}

	ctx.SendJSON(http.StatusOK, json.RawMessage(raw))
}
