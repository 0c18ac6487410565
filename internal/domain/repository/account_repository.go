// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"errors"

	"saaskit/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when no account row matches the lookup.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines the operations for authentication-method persistence.
// One account row exists per (user, provider) pair; credentials accounts hold
// the password hash, OAuth accounts hold provider tokens.
type AccountRepository interface {
	// CreateAccount persists a new authentication method for a user.
	CreateAccount(ctx context.Context, account *entity.Account) error

	// FindAccount retrieves an account by provider and the provider-side account ID.
	FindAccount(ctx context.Context, provider, providerAccountID string) (*entity.Account, error)

	// FindAccountByUserIDAndProvider retrieves a user's account for one provider.
	FindAccountByUserIDAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.Account, error)

	// ListAccountsByUserID retrieves all authentication methods bound to a user.
	ListAccountsByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Account, error)

	// UpdateAccount modifies an existing account record.
	UpdateAccount(ctx context.Context, account *entity.Account) error

	// DeleteAccount removes an authentication method by its ID.
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}
