package marketplace

import "time"

// Review is a customer's rating of a completed order
type Review struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	ServiceID     string    `json:"service_id"`
	CustomerID    string    `json:"customer_id"`
	MasterID      string    `json:"master_id"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment,omitempty"`
	IsDisputed    bool      `json:"is_disputed"`
	DisputeReason *string   `json:"dispute_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReviewWithCustomer is a review enriched with the customer's display data
type ReviewWithCustomer struct {
	Review
	CustomerName   string  `json:"customer_name"`
	CustomerAvatar *string `json:"customer_avatar,omitempty"`
}

// MasterStats are derived from reviews and orders on every read.
type MasterStats struct {
	MasterID        string  `json:"master_id"`
	Rating          float64 `json:"rating"`
	TotalReviews    int64   `json:"total_reviews"`
	CompletedOrders int64   `json:"completed_orders"`
}

// UserRef is the display data the review read model needs about a user.
type UserRef struct {
	ID     string
	Name   string
	Avatar *string
}

// CreateReviewRequest represents the request payload for creating a review
type CreateReviewRequest struct {
	OrderID string  `json:"order_id" validate:"required"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// DisputeReviewRequest is the body of POST /reviews/:id/dispute
type DisputeReviewRequest struct {
	Reason string `json:"reason"`
}

// SubmitReviewResult carries the new review and the master's stats after it.
type SubmitReviewResult struct {
	Review      *Review      `json:"review"`
	MasterStats *MasterStats `json:"master_stats"`
}

// Review list sort orders
const (
	SortNewest  = "newest"
	SortHighest = "highest"
	SortLowest  = "lowest"
)

// PlatformStats are the marketplace counters shown to admins.
type PlatformStats struct {
	Services        int64                 `json:"services"`
	Orders          int64                 `json:"orders"`
	OrdersByStatus  map[OrderStatus]int64 `json:"orders_by_status"`
	Reviews         int64                 `json:"reviews"`
	DisputedReviews int64                 `json:"disputed_reviews"`
}
