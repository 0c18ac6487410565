// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"saaskit/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for session persistence.
var (
	// ErrSessionNotFound is returned when a session row does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository defines the interface for session persistence. The store
// is the source of truth for login state; "live" always means
// expires_at > now for the instant supplied by the caller, so the service
// layer keeps full control of the clock.
type SessionRepository interface {
	// CreateSession persists a new session row.
	CreateSession(ctx context.Context, session *entity.Session) error

	// FindSessionByID retrieves a session by its unique ID regardless of expiry.
	// Used by freshness checks, which must distinguish "gone" from "stale".
	FindSessionByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// FindLiveSession retrieves the session matching id AND owner with
	// expiry after now. A mismatched owner or an expired row both surface
	// as ErrSessionNotFound so callers stay fail-closed.
	FindLiveSession(ctx context.Context, id, userID uuid.UUID, now time.Time) (*entity.Session, error)

	// FindSessionByToken retrieves a session by its opaque bearer token.
	FindSessionByToken(ctx context.Context, token string) (*entity.Session, error)

	// FindLiveSessionsByUserID retrieves all live sessions for a user,
	// newest activity first.
	FindLiveSessionsByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error)

	// FindOldestLiveSessions retrieves up to limit live sessions for a user
	// ordered by creation time ascending, for capacity eviction.
	FindOldestLiveSessions(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*entity.Session, error)

	// ExtendSession moves a session's expiry forward and records the refresh
	// instant. Expiry is never shortened.
	ExtendSession(ctx context.Context, id uuid.UUID, expiresAt, now time.Time) error

	// TouchSession records last-seen activity metadata on a session row.
	TouchSession(ctx context.Context, id uuid.UUID, userAgent, ipAddress string, now time.Time) error

	// DeleteSession removes a session by its ID, ending it permanently.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// DeleteSessionsByUserID removes all sessions for a user and reports how
	// many rows were deleted.
	DeleteSessionsByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteOtherSessions removes all of a user's sessions except the one
	// identified by exceptID and reports how many rows were deleted.
	DeleteOtherSessions(ctx context.Context, userID, exceptID uuid.UUID) (int64, error)

	// DeleteExpiredSessions removes every session with expiry at or before
	// now and reports how many rows were deleted. Safe to run concurrently.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// CountLiveSessionsByUserID returns the number of live sessions for a user.
	CountLiveSessionsByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}
