package user

import "time"

// User is an account on the platform
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	PasswordHash    string    `json:"-"` // never return
	Phone           *string   `json:"phone,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	Avatar          *string   `json:"avatar,omitempty"`
	Specializations []string  `json:"specializations"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PublicProfile hides contact details; masters carry their derived stats.
type PublicProfile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Bio             *string   `json:"bio,omitempty"`
	Avatar          *string   `json:"avatar,omitempty"`
	Specializations []string  `json:"specializations"`
	CreatedAt       time.Time `json:"created_at"`
	Rating          *float64  `json:"rating,omitempty"`
	TotalReviews    *int64    `json:"total_reviews,omitempty"`
	CompletedOrders *int64    `json:"completed_orders,omitempty"`
}

func (u *User) Public() *PublicProfile {
	return &PublicProfile{
		ID:              u.ID,
		Name:            u.Name,
		Role:            u.Role,
		Bio:             u.Bio,
		Avatar:          u.Avatar,
		Specializations: u.Specializations,
		CreatedAt:       u.CreatedAt,
	}
}

// ProfileUpdate is the body of PATCH /users/me; nil fields are left alone.
type ProfileUpdate struct {
	Name            *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Phone           *string   `json:"phone" validate:"omitempty,max=32"`
	Bio             *string   `json:"bio" validate:"omitempty,max=1000"`
	Avatar          *string   `json:"avatar" validate:"omitempty,max=500"`
	Specializations *[]string `json:"specializations" validate:"omitempty,max=20"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Bio == nil && p.Avatar == nil && p.Specializations == nil
}

// ListFilter narrows the admin user list.
type ListFilter struct {
	Role   string
	Search string
	Skip   int
	Limit  int
}
