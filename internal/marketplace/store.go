package marketplace

import "context"

// ServiceStore persists listings.
type ServiceStore interface {
	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id string) (*Service, error)
	// IncrementServiceViews bumps the view counter and returns the updated row.
	IncrementServiceViews(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context, f ServiceFilter) ([]ServiceSummary, int64, error)
	ListServicesByMaster(ctx context.Context, masterID string) ([]Service, error)
	// UpdateService loads the row under lock, applies fn and saves the result.
	UpdateService(ctx context.Context, id string, fn func(*Service) error) (*Service, error)
	DeleteService(ctx context.Context, id string) error
}

// OrderStore persists orders.
type OrderStore interface {
	// CreateOrder inserts the order and bumps the service's orders_count.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	// UpdateOrder loads the row under lock, applies fn and saves the result.
	// If fn fails nothing is written.
	UpdateOrder(ctx context.Context, id string, fn func(*Order) error) (*Order, error)
	ListOrders(ctx context.Context, actorID string, f OrderFilter) ([]Order, int64, error)
	// ListAllOrders ignores f.Role and returns every order on the platform.
	ListAllOrders(ctx context.Context, f OrderFilter) ([]Order, int64, error)
}

// ReviewStore persists reviews and derives master stats.
type ReviewStore interface {
	// CreateReview is an atomic check-and-insert keyed on order id; a second
	// review for the same order returns ErrDuplicateReview.
	CreateReview(ctx context.Context, r *Review) error
	GetReview(ctx context.Context, id string) (*Review, error)
	GetReviewByOrder(ctx context.Context, orderID string) (*Review, error)
	UpdateReview(ctx context.Context, id string, fn func(*Review) error) (*Review, error)
	ListReviewsByMaster(ctx context.Context, masterID string, skip, limit int) ([]Review, int64, error)
	ListReviewsByService(ctx context.Context, serviceID, sort string, skip, limit int) ([]Review, int64, error)
	ListDisputedReviews(ctx context.Context, skip, limit int) ([]Review, int64, error)
	MasterStats(ctx context.Context, masterID string) (*MasterStats, error)
	PlatformStats(ctx context.Context) (*PlatformStats, error)
}

// Store is everything the marketplace needs from its backing store.
type Store interface {
	ServiceStore
	OrderStore
	ReviewStore
}

// UserDirectory resolves display data for users referenced by the read models.
type UserDirectory interface {
	LookupUser(ctx context.Context, id string) (*UserRef, error)
}

// OrderBroadcaster pushes order events to live subscribers.
type OrderBroadcaster interface {
	BroadcastOrderStatus(orderID string, order *Order)
}
