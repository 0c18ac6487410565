// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"saaskit/internal/domain/entity"
	"saaskit/internal/domain/service"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// SignupInput defines the data required to register a new user.
type SignupInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// --- Output DTOs ---

// SignupOutput returns the newly created user. Session is nil when the user
// was created but the session could not be started; the caller should treat
// that as a successful signup without a login.
type SignupOutput struct {
	User    *entity.User
	Session *entity.SessionHandle
}

// LoginOutput returns the logged-in user and their new session.
type LoginOutput struct {
	User    *entity.User
	Session *entity.SessionHandle
}

// UserUsecase defines the interface for user-related business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type UserUsecase interface {
	Signup(ctx context.Context, input *SignupInput, rc service.RequestContext) (*SignupOutput, error)
	Login(ctx context.Context, input *LoginInput, rc service.RequestContext) (*LoginOutput, error)
	Logout(ctx context.Context, rc service.RequestContext) error
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}
