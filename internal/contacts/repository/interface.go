package repository

import (
	"context"

	"github.com/google/uuid"
)

// ContactRepository defines the interface for contact data operations.
type ContactRepository interface {
	Create(ctx context.Context, c Contact) (Contact, error)
	Update(ctx context.Context, c Contact) (Contact, error)
	Delete(ctx context.Context, userID, contactID uuid.UUID) error
	Get(ctx context.Context, userID, contactID uuid.UUID) (Contact, error)
	List(ctx context.Context, userID uuid.UUID) ([]Contact, error)
	BirthdaysOn(ctx context.Context, userID uuid.UUID, month, day int) ([]Contact, error)
	BirthdaysOnAnyTenant(ctx context.Context, month, day int) ([]Contact, error)
}

// Ensure Repository implements ContactRepository
var _ ContactRepository = (*Repository)(nil)
