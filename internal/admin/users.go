package admin

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
	"github.com/sudo-init-do/masterhub/internal/user"
)

// GET /admin/users?role=&search=&skip=&limit=
func (h *Handler) ListUsers(c echo.Context) error {
	f := user.ListFilter{Limit: 50}
	err := echo.QueryParamsBinder(c).
		String("role", &f.Role).
		String("search", &f.Search).
		Int("skip", &f.Skip).
		Int("limit", &f.Limit).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	users, total, err := h.users.List(c.Request().Context(), f)
	if err != nil {
		h.log.Error("list users failed", zap.Error(err))
		return serverError(c, "could not fetch users")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "total": total, "skip": f.Skip, "limit": f.Limit})
}

// POST /admin/users/:id/suspend
func (h *Handler) SuspendUser(c echo.Context) error {
	return h.setActive(c, false)
}

// POST /admin/users/:id/activate
func (h *Handler) ActivateUser(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	userID := c.Param("id")
	if userID == adminActor(c).ID && !active {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot suspend yourself"})
	}
	err := h.users.SetActive(c.Request().Context(), userID, active)
	if errors.Is(err, user.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.log.Error("set active failed", zap.String("user_id", userID), zap.Error(err))
		return serverError(c, "failed to update user")
	}

	msg := "user suspended"
	if active {
		msg = "user activated"
	}
	h.log.Info(msg, zap.String("user_id", userID), zap.String("admin_id", adminActor(c).ID))
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "user_id": userID})
}

type roleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=customer master admin"`
}

// POST /admin/users/role
func (h *Handler) SetRole(c echo.Context) error {
	req := new(roleRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error(), "code": marketplace.KindInvalidInput})
	}
	err := h.users.SetRoleByEmail(c.Request().Context(), req.Email, req.Role)
	if errors.Is(err, user.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.log.Error("set role failed", zap.String("email", req.Email), zap.Error(err))
		return serverError(c, "failed to update role")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role updated", "email": req.Email, "role": req.Role})
}
