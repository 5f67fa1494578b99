package messaging

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

type Handler struct {
	svc *Service
	hub *Hub
	log *zap.Logger
}

func NewHandler(svc *Service, hub *Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, hub: hub, log: logger}
}

func (h *Handler) Register(api *echo.Group) {
	api.POST("/messages", h.SendMessage)
	api.GET("/messages/order/:id", h.ListMessages)
	api.PATCH("/messages/order/:id/read", h.MarkRead)
	api.GET("/messages/order/:id/unread", h.UnreadCount)
	api.GET("/messages/order/:id/ws", h.OrderWS)
}

func userID(c echo.Context) (string, bool) {
	id, ok := c.Get("user_id").(string)
	return id, ok && id != ""
}

// SendMessage - customer or master posts in an order thread
func (h *Handler) SendMessage(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload", "code": marketplace.KindInvalidInput})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error(), "code": marketplace.KindInvalidInput})
	}
	msg, err := h.svc.Send(c.Request().Context(), req.OrderID, uid, req.Content)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// ListMessages - thread in chronological order; ?since=RFC3339 for incremental fetches
func (h *Handler) ListMessages(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	q := ListQuery{Limit: 100}
	if err := echo.QueryParamsBinder(c).Int("skip", &q.Skip).Int("limit", &q.Limit).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	if s := c.QueryParam("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since timestamp, use RFC3339"})
		}
		q.Since = &t
	}
	msgs, total, err := h.svc.List(c.Request().Context(), c.Param("id"), uid, q)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "messages": msgs})
}

func (h *Handler) MarkRead(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.svc.MarkRead(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"marked_as_read": n})
}

func (h *Handler) UnreadCount(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// OrderWS - websocket for realtime updates on an order thread
func (h *Handler) OrderWS(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if err := h.svc.Authorize(c.Request().Context(), orderID, uid); err != nil {
		return marketplace.WriteError(c, h.log, err)
	}
	if err := h.hub.Serve(c.Response(), c.Request(), orderID, uid); err != nil {
		h.log.Debug("ws upgrade failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return nil
}
