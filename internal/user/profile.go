package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// StatsSource supplies derived master stats for public profiles.
type StatsSource interface {
	MasterStats(ctx context.Context, masterID string) (*marketplace.MasterStats, error)
}

type Handler struct {
	store Store
	stats StatsSource
	log   *zap.Logger
}

func NewHandler(store Store, stats StatsSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, stats: stats, log: logger}
}

func (h *Handler) Register(pub, api *echo.Group) {
	api.GET("/users/me", h.GetMe)
	api.PATCH("/users/me", h.UpdateProfile)
	api.PUT("/users/me", h.UpdateProfile)
	pub.GET("/users/:id", h.GetPublicProfile)
}

func (h *Handler) GetMe(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.store.GetByID(c.Request().Context(), userID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.log.Error("fetch user", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}
	return c.JSON(http.StatusOK, u)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// PATCH /users/me
func (h *Handler) UpdateProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}

	var req ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	if req.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no data to update"})
	}

	u, err := h.store.Update(c.Request().Context(), userID, func(u *User) error {
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			u.Phone = trimmed(req.Phone)
		}
		if req.Bio != nil {
			u.Bio = trimmed(req.Bio)
		}
		if req.Avatar != nil {
			u.Avatar = trimmed(req.Avatar)
		}
		if req.Specializations != nil {
			u.Specializations = append([]string{}, (*req.Specializations)...)
		}
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.log.Error("update profile", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}
	return c.JSON(http.StatusOK, u)
}

// GET /users/:id
func (h *Handler) GetPublicProfile(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.store.GetByID(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.log.Error("fetch public profile", zap.String("user_id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}

	profile := u.Public()
	if u.Role == marketplace.RoleMaster && h.stats != nil {
		st, err := h.stats.MasterStats(ctx, u.ID)
		if err != nil {
			h.log.Warn("master stats unavailable", zap.String("user_id", u.ID), zap.Error(err))
		} else {
			profile.Rating = &st.Rating
			profile.TotalReviews = &st.TotalReviews
			profile.CompletedOrders = &st.CompletedOrders
		}
	}
	return c.JSON(http.StatusOK, profile)
}
