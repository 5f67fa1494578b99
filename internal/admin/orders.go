package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// GET /admin/orders?status_filter=&skip=&limit=
func (h *Handler) ListOrders(c echo.Context) error {
	f := marketplace.OrderFilter{
		Status: marketplace.OrderStatus(c.QueryParam("status_filter")),
		Limit:  50,
	}
	if err := echo.QueryParamsBinder(c).Int("skip", &f.Skip).Int("limit", &f.Limit).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters", "code": marketplace.KindInvalidInput})
	}
	orders, total, err := h.market.ListAllOrders(c.Request().Context(), adminActor(c), f)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders, "total": total, "skip": f.Skip, "limit": f.Limit})
}
