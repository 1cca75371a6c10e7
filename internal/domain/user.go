package domain

import (
	"context"
)

// User represents a registered account. The mobile number doubles as the
// user's public identity on the websocket channel.
type User struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name" validate:"required,max=100"`
	MobileNumber   string `json:"mobile_number" validate:"required,max=15"`
	HashedPassword string `json:"-"`
	Gender         string `json:"gender" validate:"required,max=10"`
}

// UserRepository defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	// Create stores a new user and returns it with its ID populated.
	// It returns ErrUserAlreadyExists when the mobile number is taken.
	Create(ctx context.Context, user *User) (*User, error)
	// FindByMobile returns ErrNotFound when no user has the given number.
	FindByMobile(ctx context.Context, mobile string) (*User, error)
	// ListExcept returns every user other than the one with the given number.
	ListExcept(ctx context.Context, mobile string) ([]*User, error)
	// FindByMobiles returns the users whose numbers are in mobiles. Unknown
	// numbers are skipped.
	FindByMobiles(ctx context.Context, mobiles []string) ([]*User, error)
}
