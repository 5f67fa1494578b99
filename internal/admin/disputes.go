package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// GET /admin/reviews/disputed
// Read only: disputes are flagged by masters and reviewed out of band.
func (h *Handler) ListDisputedReviews(c echo.Context) error {
	skip, limit := 0, 20
	if err := echo.QueryParamsBinder(c).Int("skip", &skip).Int("limit", &limit).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters", "code": marketplace.KindInvalidInput})
	}
	reviews, total, err := h.market.ListDisputedReviews(c.Request().Context(), skip, limit)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews, "total": total, "skip": skip, "limit": limit})
}
