package messaging

import "time"

// Message is one entry in an order's thread
type Message struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	SenderName string    `json:"sender_name,omitempty"`
}

// SendRequest is the body of POST /messages
type SendRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Content string `json:"content" validate:"required,max=5000"`
}

// ListQuery pages a thread; Since restricts it to messages newer than the given time.
type ListQuery struct {
	Since *time.Time
	Skip  int
	Limit int
}

const maxContentLength = 5000
