// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core identity record of the system. It carries only the
// fundamental account information; credentials live in Account rows and
// login state lives in Session rows.
type User struct {
	ID            uuid.UUID // The unique identifier for the user; immutable after creation.
	Email         string    // The user's primary contact email, unique across the system.
	Username      string    // The user's unique handle.
	FirstName     string    // Optional given name.
	LastName      string    // Optional family name.
	Role          Role      // The user's role (user, admin, staff).
	EmailVerified bool      // Whether the user has confirmed ownership of their email address.
	CreatedAt     time.Time // Timestamp of when this user account was created.
	UpdatedAt     time.Time // Timestamp of the last modification to this user's data.
}

// Snapshot returns the cookie-safe view of the user that is mirrored into
// the signed session cookie. It deliberately omits anything the store must
// stay authoritative for.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// UserSnapshot is the identity excerpt carried in the cookie session mirror.
// It is advisory only; every sensitive operation reconciles it against the
// session store.
type UserSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Role      Role      `json:"role"`
}
