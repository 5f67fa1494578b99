package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/alerts"
)

const minOrderDescription = 10

// =========================
// CreateOrder - customer places an order against a service
// =========================
func (m *Market) CreateOrder(ctx context.Context, customer Actor, req CreateOrderRequest) (*Order, error) {
	desc := strings.TrimSpace(req.Description)
	if runeLen(desc) < minOrderDescription {
		return nil, newError(KindInvalidInput, "description must be at least %d characters", minOrderDescription)
	}

	svc, err := m.store.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, newError(KindInvalidInput, "service is not active")
	}
	if svc.MasterID == customer.ID {
		return nil, ErrSelfOrderForbidden
	}

	now := m.now()
	order := &Order{
		ID:            uuid.NewString(),
		ServiceID:     svc.ID,
		CustomerID:    customer.ID,
		MasterID:      svc.MasterID,
		Description:   desc,
		CustomerNotes: trimmedOrNil(req.CustomerNotes),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	m.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("service_id", svc.ID),
		zap.String("customer_id", customer.ID),
		zap.String("master_id", svc.MasterID))

	m.notify(ctx, alerts.NotificationInput{
		UserID:  svc.MasterID,
		Type:    alerts.TypeNewOrder,
		Title:   "New order",
		Content: fmt.Sprintf("You have a new order for '%s'", svc.Title),
		Link:    "/orders/" + order.ID,
	})
	return order, nil
}

// =========================
// UpdateStatus - master (or admin) moves the order along its lifecycle
// =========================
func (m *Market) UpdateStatus(ctx context.Context, orderID string, actor Actor, upd StatusUpdate) (*Order, error) {
	var previous OrderStatus
	order, err := m.store.UpdateOrder(ctx, orderID, func(o *Order) error {
		if o.MasterID != actor.ID && !actor.IsAdmin() {
			return newError(KindForbidden, "only the master can update order status")
		}
		if err := validateTransition(o, upd, m.now); err != nil {
			return err
		}
		previous = o.Status
		applyTransition(o, upd, m.now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
		zap.String("actor_id", actor.ID))

	m.notifyStatusChange(ctx, order)
	if m.hub != nil {
		m.hub.BroadcastOrderStatus(order.ID, order)
	}
	return order, nil
}

var statusNotifications = map[OrderStatus]alerts.NotificationType{
	StatusAccepted:   alerts.TypeOrderAccepted,
	StatusRejected:   alerts.TypeOrderRejected,
	StatusInProgress: alerts.TypeOrderInProgress,
	StatusCompleted:  alerts.TypeOrderCompleted,
	StatusCancelled:  alerts.TypeOrderCancelled,
}

func (m *Market) notifyStatusChange(ctx context.Context, o *Order) {
	ntype, ok := statusNotifications[o.Status]
	if !ok {
		return
	}
	title := "your order"
	if svc, err := m.store.GetService(ctx, o.ServiceID); err == nil {
		title = "'" + svc.Title + "'"
	}
	m.notify(ctx, alerts.NotificationInput{
		UserID:  o.CustomerID,
		Type:    ntype,
		Title:   "Order " + string(o.Status),
		Content: fmt.Sprintf("The status of %s changed to %s", title, o.Status),
		Link:    "/orders/" + o.ID,
	})
}

// GetOrder returns an order visible to its participants and admins.
func (m *Market) GetOrder(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	o, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != actor.ID && o.MasterID != actor.ID && !actor.IsAdmin() {
		return nil, newError(KindForbidden, "access denied")
	}
	return o, nil
}

// ListOrders returns the actor's orders, most recent first.
func (m *Market) ListOrders(ctx context.Context, actor Actor, f OrderFilter) ([]Order, int64, error) {
	switch f.Role {
	case "", RoleCustomer, RoleMaster:
	default:
		return nil, 0, newError(KindInvalidInput, "role must be customer or master")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, newError(KindInvalidInput, "unknown status %q", f.Status)
	}
	f.Skip, f.Limit = normalizePage(f.Skip, f.Limit)
	return m.store.ListOrders(ctx, actor.ID, f)
}

// ListAllOrders is the admin view over every order, most recent first.
func (m *Market) ListAllOrders(ctx context.Context, actor Actor, f OrderFilter) ([]Order, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, newError(KindForbidden, "admin access only")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, newError(KindInvalidInput, "unknown status %q", f.Status)
	}
	f.Role = ""
	f.Skip, f.Limit = normalizePage(f.Skip, f.Limit)
	return m.store.ListAllOrders(ctx, f)
}
