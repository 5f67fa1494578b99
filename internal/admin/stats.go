package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	platform, err := h.market.PlatformStats(ctx)
	if err != nil {
		h.log.Error("platform stats failed", zap.Error(err))
		return serverError(c, "could not load stats")
	}
	byRole, err := h.users.CountByRole(ctx)
	if err != nil {
		h.log.Error("user counts failed", zap.Error(err))
		return serverError(c, "could not load stats")
	}

	var users int64
	for _, n := range byRole {
		users += n
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users":            users,
		"customers":        byRole[marketplace.RoleCustomer],
		"masters":          byRole[marketplace.RoleMaster],
		"admins":           byRole[marketplace.RoleAdmin],
		"services":         platform.Services,
		"orders":           platform.Orders,
		"orders_by_status": platform.OrdersByStatus,
		"reviews":          platform.Reviews,
		"disputed_reviews": platform.DisputedReviews,
	})
}
