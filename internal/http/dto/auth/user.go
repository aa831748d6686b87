package auth

import (
	"time"

	"github.com/tastebase/auth/internal/domain/repository"
)

// UserResponse is the public view of a user record.
type UserResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Region     string    `json:"region,omitempty"`
	IsVerified bool      `json:"is_verified"`
	IsPaid     bool      `json:"is_paid"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUserResponse maps a user entity into the wire shape.
func NewUserResponse(u *repository.User) UserResponse {
	resp := UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Region:     u.Region,
		IsVerified: u.IsVerified,
		IsPaid:     u.IsPaid,
		CreatedAt:  u.CreatedAt,
	}
	if u.Email != nil {
		resp.Email = *u.Email
	}
	if u.Phone != nil {
		resp.Phone = *u.Phone
	}
	return resp
}

// AccountStatusResponse is the shape-constant status probe answer.
type AccountStatusResponse struct {
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}
