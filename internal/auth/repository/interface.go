package repository

import (
	"context"

	"github.com/google/uuid"
)

// AuthRepository defines the interface for authentication data operations.
// Services depend on this abstraction rather than the concrete implementation.
type AuthRepository interface {
	CreateUser(ctx context.Context, email, passwordHash, name, role string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	EnsureAdmin(ctx context.Context, email, passwordHash, name string) error
}

// Ensure Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
