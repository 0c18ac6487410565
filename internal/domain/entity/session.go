// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one server-tracked authenticated login. It is the
// source of truth for login state; the signed cookie only mirrors it.
// A session always belongs to exactly one user, and its expiry may only
// ever move forward across refreshes.
type Session struct {
	ID        uuid.UUID // The unique ID for this session record.
	Token     string    // Opaque bearer value, distinct from ID, never reused after deletion.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	UserAgent string    // Diagnostic: user agent observed at the last activity.
	IPAddress string    // Diagnostic: client address observed at the last activity.
	ExpiresAt time.Time // Absolute expiry instant; monotonically non-decreasing.
	CreatedAt time.Time // When the session was created (the login instant).
	UpdatedAt time.Time // Last activity or refresh instant.
}

// Live reports whether the session has not yet expired at the given instant.
func (s *Session) Live(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// CookieSession is the client-held mirror of session identity, transported
// as a signed cookie. It is advisory: the store always wins.
type CookieSession struct {
	User       UserSnapshot `json:"user"`
	SessionID  uuid.UUID    `json:"sessionId"`
	LoggedInAt time.Time    `json:"loggedInAt"`
}

// SessionHandle is returned from session creation. It is the only place the
// raw bearer token is handed out.
type SessionHandle struct {
	ID        uuid.UUID
	Token     string
	ExpiresAt time.Time
	User      UserSnapshot
}

// EnrichedSession is the reconciled view returned by validation: cookie
// identity plus the authoritative store row, with the optional subscription
// composed on by the fetch hook.
type EnrichedSession struct {
	Cookie       CookieSession
	Session      *Session
	LastActivity time.Time
	Subscription *Subscription // nil when the user has no active subscription
}

// SessionSummary is the listing view of a session. It never exposes the
// bearer token.
type SessionSummary struct {
	ID        uuid.UUID `json:"id"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

// Summary converts a session row to its listing view.
func (s *Session) Summary() *SessionSummary {
	return &SessionSummary{
		ID:        s.ID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
