package testutils

import (
	"context"
	"testing"

	"github.com/nfrund/amruno/internal/auth"
	"github.com/nfrund/amruno/internal/domain"
)

// TestPassword is the plain-text password of every user made by CreateUser.
const TestPassword = "secret123"

// CreateUser registers a user whose password is TestPassword.
func CreateUser(t *testing.T, users domain.UserRepository, name, mobile string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	u, err := users.Create(context.Background(), &domain.User{
		FullName:       name,
		MobileNumber:   mobile,
		HashedPassword: hash,
		Gender:         "other",
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", mobile, err)
	}
	return u
}
