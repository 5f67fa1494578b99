package alerts

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Inbox is the per-user view over the notification store.
type Inbox struct {
	store Store
}

func NewInbox(store Store) *Inbox {
	return &Inbox{store: store}
}

// InboxPage is one page of a user's notifications plus counters over the whole inbox.
type InboxPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	UnreadCount   int64          `json:"unread_count"`
}

func (i *Inbox) List(ctx context.Context, userID string, unreadOnly bool, skip, limit int) (*InboxPage, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, total, unread, err := i.store.List(ctx, userID, unreadOnly, skip, limit)
	if err != nil {
		return nil, err
	}
	return &InboxPage{Notifications: items, Total: total, UnreadCount: unread}, nil
}

// MarkRead flags one of the user's notifications as read.
func (i *Inbox) MarkRead(ctx context.Context, id, userID string) error {
	n, err := i.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	return i.store.MarkRead(ctx, id)
}

func (i *Inbox) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return i.store.MarkAllRead(ctx, userID)
}

// Handler serves /notifications.
type Handler struct {
	inbox *Inbox
	log   *zap.Logger
}

func NewHandler(inbox *Inbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{inbox: inbox, log: logger}
}

func (h *Handler) Register(api *echo.Group) {
	api.GET("/notifications", h.ListNotifications)
	api.PATCH("/notifications/read-all", h.MarkAllRead)
	api.PATCH("/notifications/:id/read", h.MarkNotificationRead)
}

// ListNotifications returns current user's notifications, newest first
func (h *Handler) ListNotifications(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var unreadOnly bool
	skip, limit := 0, 50
	if err := echo.QueryParamsBinder(c).
		Bool("unread_only", &unreadOnly).
		Int("skip", &skip).
		Int("limit", &limit).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}

	page, err := h.inbox.List(c.Request().Context(), userID, unreadOnly, skip, limit)
	if err != nil {
		h.log.Error("list notifications", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, page)
}

// MarkNotificationRead marks specific notification as read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nid := c.Param("id")
	err := h.inbox.MarkRead(c.Request().Context(), nid, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case err != nil:
		h.log.Error("mark notification read", zap.String("id", nid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": nid, "is_read": true})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.inbox.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		h.log.Error("mark all read", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	return c.JSON(http.StatusOK, echo.Map{"marked_as_read": n})
}
