package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/alerts"
	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// OrderLookup is the slice of the order store the thread needs.
type OrderLookup interface {
	GetOrder(ctx context.Context, id string) (*marketplace.Order, error)
}

// Service runs order threads. Only the order's customer and master may
// read or write a thread.
type Service struct {
	orders  OrderLookup
	store   Store
	users   marketplace.UserDirectory
	emitter alerts.Emitter
	hub     *Hub
	log     *zap.Logger
}

func NewService(orders OrderLookup, store Store, users marketplace.UserDirectory, emitter alerts.Emitter, hub *Hub, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, store: store, users: users, emitter: emitter, hub: hub, log: logger}
}

// participant loads the order and returns the other party for userID.
func (s *Service) participant(ctx context.Context, orderID, userID string) (*marketplace.Order, string, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	switch userID {
	case order.CustomerID:
		return order, order.MasterID, nil
	case order.MasterID:
		return order, order.CustomerID, nil
	}
	return nil, "", &marketplace.Error{Kind: marketplace.KindForbidden, Message: "not a participant in this order"}
}

// Authorize checks that userID may follow the order's thread.
func (s *Service) Authorize(ctx context.Context, orderID, userID string) error {
	_, _, err := s.participant(ctx, orderID, userID)
	return err
}

func (s *Service) Send(ctx context.Context, orderID, senderID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > maxContentLength {
		return nil, &marketplace.Error{Kind: marketplace.KindInvalidInput, Message: "content must be 1-5000 characters"}
	}
	_, receiverID, err := s.participant(ctx, orderID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Publish(orderID, EventMessageNew, msg)
	}
	if s.emitter != nil {
		err := s.emitter.Notify(ctx, alerts.NotificationInput{
			UserID:  receiverID,
			Type:    alerts.TypeNewMessage,
			Title:   "New message",
			Content: "You have a new message on your order",
			Link:    "/chat/" + orderID,
		})
		if err != nil {
			s.log.Warn("notification dropped", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return msg, nil
}

func (s *Service) List(ctx context.Context, orderID, userID string, q ListQuery) ([]Message, int64, error) {
	if _, _, err := s.participant(ctx, orderID, userID); err != nil {
		return nil, 0, err
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	msgs, total, err := s.store.List(ctx, orderID, q)
	if err != nil {
		return nil, 0, err
	}

	names := make(map[string]string)
	for i := range msgs {
		id := msgs[i].SenderID
		name, seen := names[id]
		if !seen && s.users != nil {
			if ref, err := s.users.LookupUser(ctx, id); err == nil {
				name = ref.Name
			}
			names[id] = name
		}
		msgs[i].SenderName = name
	}
	return msgs, total, nil
}

func (s *Service) MarkRead(ctx context.Context, orderID, userID string) (int64, error) {
	if _, _, err := s.participant(ctx, orderID, userID); err != nil {
		return 0, err
	}
	n, err := s.store.MarkRead(ctx, orderID, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.hub != nil {
		s.hub.Publish(orderID, EventMessageRead, map[string]any{
			"order_id": orderID,
			"user_id":  userID,
			"count":    n,
		})
	}
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, orderID, userID string) (int64, error) {
	if _, _, err := s.participant(ctx, orderID, userID); err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, orderID, userID)
}
