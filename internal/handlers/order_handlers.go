package handlers

import (
	"encoding/json"
	"net/http"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/middleware"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

type submitOrderRequest struct {
	Side          string  `json:"side"`
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty"`
	Price         float64 `json:"price,omitempty"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
}

// SubmitOrder handles POST /api/orders.
func (h *Handlers) SubmitOrder(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermWriteOrders) {
		return
	}

	var req submitOrderRequest
	if err := ctx.DecodeJSON(&req); err != nil {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "invalid request body")
		return
	}
	if req.Side == "" || req.Symbol == "" || req.Qty <= 0 {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "side, symbol and a positive qty are required")
		return
	}
	if req.ClientOrderID != "" && !middleware.IsValidUUID(req.ClientOrderID) {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "client_order_id must be a UUID")
		return
	}

	params := map[string]interface{}{
		"side":   req.Side,
		"symbol": req.Symbol,
		"qty":    req.Qty,
	}
	if req.Price != 0 {
		params["price"] = req.Price
	}
	if req.ClientOrderID != "" {
		params["client_order_id"] = req.ClientOrderID
	}

	requestCtx, cancel := withEngineTimeout(ctx, h.engineTimeout())
	defer cancel()

	raw, err := h.Bridge.Place(requestCtx, params)
	if err != nil {
		sendServiceError(ctx, err)
		return
	}

	ctx.SendJSON(http.StatusOK, json.RawMessage(raw))
}

// ListOrders handles GET /api/orders, reading the bridge's state mirror.
func (h *Handlers) ListOrders(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadOrders) {
		return
	}
	ctx.SendJSON(http.StatusOK, h.Bridge.Mirror().Orders())
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handlers) GetOrder(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadOrders) {
		return
	}

	id := ctx.PathParams["id"]
	order, ok := h.Bridge.Mirror().Order(id)
	if !ok {
		ctx.SendError(http.StatusNotFound, svcerrors.KindNotFound.ShortCode(), "no such order")
		return
	}
	ctx.SendJSON(http.StatusOK, order)
}

// CancelOrder handles DELETE /api/orders/{id}.
func (h *Handlers) CancelOrder(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermWriteCancel) {
		return
	}

	id := ctx.PathParams["id"]
	if id == "" {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "missing order id")
		return
	}

	requestCtx, cancel := withEngineTimeout(ctx, h.engineTimeout())
	defer cancel()

	raw, err := h.Bridge.Cancel(requestCtx, map[string]interface{}{"client_order_id": id})
	if err != nil {
		sendServiceError(ctx, err)
		return
	}

	ctx.SendJSON(http.StatusOK, json.RawMessage(raw))
}

type bulkCancelRequest struct {
	OrderIDs []string `json:"order_ids"`
}

// BulkCancel handles POST /api/cancel.
func (h *Handlers) BulkCancel(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermWriteCancel) {
		return
	}

	var req bulkCancelRequest
	if err := ctx.DecodeJSON(&req); err != nil || len(req.OrderIDs) == 0 {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "order_ids must be a non-empty array")
		return
	}

	requestCtx, cancel := withEngineTimeout(ctx, h.engineTimeout())
	defer cancel()

	raw, err := h.Bridge.Cancel(requestCtx, map[string]interface{}{"order_ids": req.OrderIDs})
	if err != nil {
		sendServiceError(ctx, err)
		return
	}

	ctx.SendJSON(http.StatusOK, json.RawMessage(raw))
}
