package marketplace

import "time"

// Roles carried in the JWT and on users rows.
const (
	RoleCustomer = "customer"
	RoleMaster   = "master"
	RoleAdmin    = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Category is the fixed set of service categories.
type Category string

const (
	CategoryKnitting    Category = "knitting"
	CategoryEmbroidery  Category = "embroidery"
	CategorySewing      Category = "sewing"
	CategoryCrochet     Category = "crochet"
	CategoryFelting     Category = "felting"
	CategoryJewelry     Category = "jewelry"
	CategoryPottery     Category = "pottery"
	CategoryWoodworking Category = "woodworking"
	CategoryPainting    Category = "painting"
	CategorySoapMaking  Category = "soap_making"
	CategoryOther       Category = "other"
)

var categories = map[Category]bool{
	CategoryKnitting: true, CategoryEmbroidery: true, CategorySewing: true,
	CategoryCrochet: true, CategoryFelting: true, CategoryJewelry: true,
	CategoryPottery: true, CategoryWoodworking: true, CategoryPainting: true,
	CategorySoapMaking: true, CategoryOther: true,
}

func (c Category) Valid() bool { return categories[c] }

// MaxServiceImages caps the image references on a listing.
const MaxServiceImages = 10

// Service represents a service listed by a master
type Service struct {
	ID           string    `json:"id"`
	MasterID     string    `json:"master_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	DurationDays *int      `json:"duration_days,omitempty"`
	Images       []string  `json:"images"`
	IsActive     bool      `json:"is_active"`
	Views        int64     `json:"views"`
	OrdersCount  int64     `json:"orders_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ServiceSummary is a catalog entry with the owning master's display data
type ServiceSummary struct {
	Service
	MasterName   string  `json:"master_name,omitempty"`
	MasterRating float64 `json:"master_rating"`
}

// ServiceInput is the writable part of a listing.
type ServiceInput struct {
	Title        string   `json:"title" validate:"required,min=5,max=200"`
	Description  string   `json:"description" validate:"required,min=20"`
	Category     Category `json:"category" validate:"required"`
	Price        float64  `json:"price" validate:"required,gt=0"`
	Currency     string   `json:"currency" validate:"omitempty,len=3"`
	DurationDays *int     `json:"duration_days" validate:"omitempty,gt=0"`
	Images       []string `json:"images" validate:"max=10"`
}

// ServicePatch carries optional listing changes; nil fields are left untouched.
type ServicePatch struct {
	Title        *string   `json:"title" validate:"omitempty,min=5,max=200"`
	Description  *string   `json:"description" validate:"omitempty,min=20"`
	Category     *Category `json:"category"`
	Price        *float64  `json:"price" validate:"omitempty,gt=0"`
	Currency     *string   `json:"currency" validate:"omitempty,len=3"`
	DurationDays *int      `json:"duration_days" validate:"omitempty,gt=0"`
	Images       *[]string `json:"images" validate:"omitempty,max=10"`
	IsActive     *bool     `json:"is_active"`
}

// ServiceFilter drives catalog listing.
type ServiceFilter struct {
	Category Category
	Search   string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string // created_at | price | rating
	// IncludeInactive also returns deactivated listings (admin moderation).
	IncludeInactive bool
	Skip            int
	Limit           int
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusRejected   OrderStatus = "rejected"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// Order represents an order placed by a customer for a master's service
type Order struct {
	ID            string      `json:"id"`
	ServiceID     string      `json:"service_id"`
	CustomerID    string      `json:"customer_id"`
	MasterID      string      `json:"master_id"`
	Description   string      `json:"description"`
	CustomerNotes *string     `json:"customer_notes,omitempty"`
	Status        OrderStatus `json:"status"`
	AgreedPrice   *float64    `json:"agreed_price,omitempty"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	ServiceID     string  `json:"service_id" validate:"required"`
	Description   string  `json:"description" validate:"required,min=10"`
	CustomerNotes *string `json:"customer_notes"`
}

// StatusUpdate is the body of PATCH /orders/:id/status
type StatusUpdate struct {
	Status      OrderStatus `json:"status" validate:"required"`
	AgreedPrice *float64    `json:"agreed_price"`
	Deadline    *time.Time  `json:"deadline"`
}

// OrderFilter narrows ListOrders. Role is "customer", "master" or empty for both.
type OrderFilter struct {
	Status OrderStatus
	Role   string
	Skip   int
	Limit  int
}
