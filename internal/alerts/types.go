package alerts

import "time"

// Task and queue names
const (
	TaskNotificationCreate = "notification:create"
	QueueNotifications     = "notifications"
)

// NotificationType tags an inbox item with the event that produced it.
type NotificationType string

const (
	TypeNewOrder        NotificationType = "new_order"
	TypeOrderAccepted   NotificationType = "order_accepted"
	TypeOrderRejected   NotificationType = "order_rejected"
	TypeOrderInProgress NotificationType = "order_in_progress"
	TypeOrderCompleted  NotificationType = "order_completed"
	TypeOrderCancelled  NotificationType = "order_cancelled"
	TypeNewMessage      NotificationType = "new_message"
	TypeNewReview       NotificationType = "new_review"
	TypeReviewDisputed  NotificationType = "review_disputed"
)

// NotificationInput is what producers hand to an Emitter.
type NotificationInput struct {
	UserID  string           `json:"user_id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Content string           `json:"content"`
	Link    string           `json:"link,omitempty"`
}

// Notification is an inbox item
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Link      string           `json:"link,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// notificationPayload travels on the queue. The id is fixed at enqueue time
// so a retried task does not create a second inbox item.
type notificationPayload struct {
	ID        string            `json:"id"`
	Input     NotificationInput `json:"input"`
	Requested time.Time         `json:"requested"`
}
