package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
	"github.com/sudo-init-do/masterhub/internal/user"
)

// Handler serves the /admin surface. Routes are mounted on a group that is
// already behind JWTMiddleware and AdminGuard.
type Handler struct {
	users  user.Store
	market *marketplace.Market
	log    *zap.Logger
}

func NewHandler(users user.Store, market *marketplace.Market, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, market: market, log: logger}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)

	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/suspend", h.SuspendUser)
	g.POST("/users/:id/activate", h.ActivateUser)
	g.POST("/users/role", h.SetRole)

	g.GET("/orders", h.ListOrders)

	g.GET("/services", h.ListServices)
	g.POST("/services/:id/deactivate", h.DeactivateService)
	g.POST("/services/:id/activate", h.ActivateService)

	g.GET("/reviews/disputed", h.ListDisputedReviews)
}

func adminActor(c echo.Context) marketplace.Actor {
	id, _ := c.Get("user_id").(string)
	return marketplace.Actor{ID: id, Role: marketplace.RoleAdmin}
}

func serverError(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
