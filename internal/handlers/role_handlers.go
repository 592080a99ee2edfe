package handlers

import (
	"net/http"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

// ListRoles handles GET /api/roles, an admin-only view of every known
// role's permission mask, per the original source's role_handler.h.
func (h *Handlers) ListRoles(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminUsers) {
		return
	}

	roles := h.Roles.Names()
	out := make([]map[string]interface{}, 0, len(roles))
	for _, name := range roles {
		mask, _ := h.Roles.Mask(name)
		out = append(out, map[string]interface{}{
			"role":        name,
			"permissions": permissionNames(mask),
		})
	}
	ctx.SendJSON(http.StatusOK, out)
}

// GetUserRoles handles GET /api/roles/{user_id}.
func (h *Handlers) GetUserRoles(ctx *gatewayhttp.RequestContext) {
	if !h.requirePermission(ctx, auth.PermAdminUsers) {
		return
	}

	userID := ctx.PathParams["user_id"]
	if userID == "" {
		ctx.SendError(http.StatusBadRequest, svcerrors.KindInvalidInput.ShortCode(), "missing user id")
		return
	}

	ctx.SendJSON(http.StatusOK, map[string]interface{}{
		"user_id":     userID,
		"roles":       h.Users.Roles(userID),
		"permissions": permissionNames(h.RBAC.EffectiveMask(userID)),
	})
}

func permissionNames(mask auth.Permission) []string {
	names := make([]string, 0)
	for _, p := range auth.AllPermissions() {
		if mask&p != 0 {
			names = append(names, p.String())
		}
	}
	return names
}
