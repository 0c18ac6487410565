// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"saaskit/internal/domain/entity"
	"saaskit/internal/domain/service"

	"github.com/google/uuid"
)

// SessionUsecase defines the interface for the session lifecycle: creation,
// validation, refresh, and revocation. The relational store is the source of
// truth; the signed cookie carried by the RequestContext is only a mirror.
type SessionUsecase interface {
	// CreateSession starts a new session for an authenticated user, evicting
	// the user's oldest sessions if they are at capacity, and sets the
	// session cookie on the response.
	CreateSession(ctx context.Context, user *entity.User, rc service.RequestContext) (*entity.SessionHandle, error)

	// GetSession validates the request's session cookie against the store.
	// It returns (nil, nil) when the request carries no usable session; any
	// invalid or revoked cookie is cleared from the client before returning.
	// When freshness is enforced globally, a live session that is too old
	// returns ErrSessionNotFresh instead, after clearing the cookie, so the
	// condition stays distinguishable from absence. A valid hit applies
	// activity tracking and sliding-window refresh, and composes the user's
	// subscription onto the result.
	GetSession(ctx context.Context, rc service.RequestContext) (*entity.EnrichedSession, error)

	// CheckSessionFreshness verifies that the request's session was updated
	// recently enough for sensitive operations. Returns ErrSessionInvalid
	// when there is no valid session and ErrSessionNotFresh when it is too
	// old. A zero freshness window disables the check.
	CheckSessionFreshness(ctx context.Context, rc service.RequestContext) error

	// RevokeCurrentSession ends the request's own session and clears the
	// cookie. The cookie is cleared even when the store delete fails.
	RevokeCurrentSession(ctx context.Context, rc service.RequestContext) error

	// RevokeSessionByToken ends the session holding token, provided it
	// belongs to userID. Returns false when no such session exists or the
	// ownership check fails.
	RevokeSessionByToken(ctx context.Context, token string, userID uuid.UUID) (bool, error)

	// RevokeAllSessions ends every session for a user and returns how many
	// were ended.
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error)

	// RevokeOtherSessions ends every session of the current user except the
	// one on this request and returns how many were ended.
	RevokeOtherSessions(ctx context.Context, rc service.RequestContext) (int64, error)

	// ListUserSessions returns the user's live sessions, newest activity
	// first, without exposing bearer tokens.
	ListUserSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionSummary, error)

	// CleanupExpiredSessions removes expired rows from the store and returns
	// how many were removed. Idempotent and safe to run on a schedule.
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
