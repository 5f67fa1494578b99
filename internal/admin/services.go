package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// GET /admin/services?category=&search=&skip=&limit=
// Inactive listings are included so they can be found and reactivated.
func (h *Handler) ListServices(c echo.Context) error {
	f := marketplace.ServiceFilter{
		Category: marketplace.Category(c.QueryParam("category")),
		Search:   c.QueryParam("search"),
		Limit:    50,
	}
	if err := echo.QueryParamsBinder(c).Int("skip", &f.Skip).Int("limit", &f.Limit).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters", "code": marketplace.KindInvalidInput})
	}
	items, total, err := h.market.ListAllServices(c.Request().Context(), adminActor(c), f)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": items, "total": total, "skip": f.Skip, "limit": f.Limit})
}

// POST /admin/services/:id/deactivate
func (h *Handler) DeactivateService(c echo.Context) error {
	return h.setServiceActive(c, false)
}

// POST /admin/services/:id/activate
func (h *Handler) ActivateService(c echo.Context) error {
	return h.setServiceActive(c, true)
}

func (h *Handler) setServiceActive(c echo.Context, active bool) error {
	svc, err := h.market.UpdateService(c.Request().Context(), c.Param("id"), adminActor(c),
		marketplace.ServicePatch{IsActive: &active})
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "service updated", "service": svc})
}
