// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifiers for Account rows.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
	ProviderGitHub      = "github"
)

// Account represents a single method of logging in bound to a User.
// A password login is one record; a linked OAuth provider is another.
// Many accounts may reference one user, at most one per provider, and they
// are removed when the owning user is deleted.
type Account struct {
	ID                uuid.UUID  // The unique ID for this specific account record.
	UserID            uuid.UUID  // Links this authentication method to the User it belongs to.
	Provider          string     // The authentication provider, e.g. "credentials", "google".
	ProviderAccountID string     // The user's unique ID at the provider; the email for credentials.
	HashedPassword    string     // Bcrypt hash, only populated when Provider is "credentials".
	AccessToken       string     // OAuth access token, empty for credentials.
	RefreshToken      string     // OAuth refresh token, empty for credentials.
	Scope             string     // OAuth scope granted by the provider.
	TokenExpiresAt    *time.Time // Expiry of the provider access token, if any.
	CreatedAt         time.Time  // Timestamp of when this method was linked to the account.
	UpdatedAt         time.Time  // Timestamp of the last modification.
}
