package main

import (
	"net/http"

	"github.com/veloz-systems/gateway/internal/gatewayhttp"
	"github.com/veloz-systems/gateway/internal/handlers"
	"github.com/veloz-systems/gateway/internal/sse"
)

// registerRoutes wires every path from spec section 6's HTTP surface table
// onto router. Permission enforcement lives inside each handler
// (handlers.Handlers.requirePermission); the router itself only matches
// method+pattern and extracts path parameters.
func registerRoutes(router *gatewayhttp.Router, h *handlers.Handlers, streamHandler *sse.Handler) {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(router.AddRoute(http.MethodGet, "/health", h.Health))
	must(router.AddRoute(http.MethodGet, "/api/health", h.APIHealth))

	must(router.AddRoute(http.MethodPost, "/api/auth/login", h.Login))
	must(router.AddRoute(http.MethodPost, "/api/auth/refresh", h.Refresh))
	must(router.AddRoute(http.MethodPost, "/api/auth/logout", h.Logout))
	must(router.AddRoute(http.MethodGet, "/api/auth/keys", h.ListAPIKeys))
	must(router.AddRoute(http.MethodPost, "/api/auth/keys", h.CreateAPIKey))
	must(router.AddRoute(http.MethodDelete, "/api/auth/keys/{id}", h.RevokeAPIKey))

	must(router.AddRoute(http.MethodGet, "/api/orders", h.ListOrders))
	must(router.AddRoute(http.MethodPost, "/api/orders", h.SubmitOrder))
	must(router.AddRoute(http.MethodGet, "/api/orders/{id}", h.GetOrder))
	must(router.AddRoute(http.MethodDelete, "/api/orders/{id}", h.CancelOrder))
	must(router.AddRoute(http.MethodPost, "/api/cancel", h.BulkCancel))

	must(router.AddRoute(http.MethodGet, "/api/account", h.GetAccount))
	must(router.AddRoute(http.MethodGet, "/api/account/positions", h.ListPositions))
	must(router.AddRoute(http.MethodGet, "/api/account/positions/{symbol}", h.GetPosition))

	must(router.AddRoute(http.MethodGet, "/api/config", h.GetConfig))
	must(router.AddRoute(http.MethodGet, "/api/config/{key}", h.GetConfig))
	must(router.AddRoute(http.MethodPost, "/api/config/{key}", h.SetConfig))
	must(router.AddRoute(http.MethodDelete, "/api/config/{key}", h.DeleteConfig))

	must(router.AddRoute(http.MethodGet, "/api/market", h.GetMarket))

	must(router.AddRoute(http.MethodGet, "/api/roles", h.ListRoles))
	must(router.AddRoute(http.MethodGet, "/api/roles/{user_id}", h.GetUserRoles))

	must(router.AddRoute(http.MethodGet, "/api/audit", h.GetAuditLog))

	must(router.AddRoute(http.MethodGet, "/api/stream", func(ctx *gatewayhttp.RequestContext) {
		streamHandler.Handle(ctx)
	}))
}
