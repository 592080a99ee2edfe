package handlers

import (
	"errors"
	"net/http"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// GetConfig handles GET /api/config and GET /api/config/{key}.
func (h *Handlers) GetConfig(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermReadConfig) {
		return
	}

	key, hasKey := ctx.PathParams["key"]
	if !hasKey || key == "" {
		ctx.SendJSON(http.StatusOK, h.Config.All())
		return
	}

	value, ok := h.Config.Get(key)
	if !ok {
		ctx.SendError(http.StatusNotFound, svcerrors.KindNotFound.ShortCode(), "no such config key")
		return
	}
	ctx.SendJSON(http.StatusOK, map[string]interface{}{"key": key, "value": value})
}

// SetConfig handles POST /api/config/{key}, body `{"value": ...}`.
func (h *Handlers) SetConfig(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminConfig) {
		return
	}

	key := ctx.PathParams["key"]
	if key == "" {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "missing config key")
		return
	}

	var body struct {
		Value interface{} `json:"value"`
	}
	if err := ctx.DecodeJSON(&body); err != nil {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "invalid request body")
		return
	}

	if err := h.Config.Set(key, body.Value); err != nil {
		var roErr errReadOnlyKey
		if errors.As(err, &roErr) {
			ctx.SendError(http.StatusForbidden, svcerrors.KindUnauthorized.ShortCode(), err.Error())
			return
		}
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), err.Error())
		return
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{"key": key, "value": body.Value})
}

// DeleteConfig handles DELETE /api/config/{key}.
func (h *Handlers) DeleteConfig(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminConfig) {
		return
	}

	key := ctx.PathParams["key"]
	if key == "" {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "missing config key")
		return
	}

	if err := h.Config.Delete(key); err != nil {
		var roErr errReadOnlyKey
		if errors.As(err, &roErr) {
			ctx.SendError(http.StatusForbidden, svcerrors.KindUnauthorized.ShortCode(), err.Error())
			return
		}
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), err.Error())
		return
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{"key": key, "deleted": true})
}
