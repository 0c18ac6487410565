package service

import (
	"errors"

	"saaskit/internal/domain/entity"
)

// ErrCookieInvalid is returned when a session cookie fails signature
// verification or carries a malformed payload. Callers must treat it as
// "no session" rather than as a transport failure.
var ErrCookieInvalid = errors.New("session cookie invalid")

// CookieCodec signs and verifies the session cookie payload. The cookie is a
// convenience mirror of the session row; it never outranks the store, so the
// codec only guards integrity, not truth.
type CookieCodec interface {
	// Encode serializes and signs a cookie payload for transport.
	Encode(cookie *entity.CookieSession) (string, error)

	// Decode verifies the signature and returns the embedded payload.
	// Returns ErrCookieInvalid on any tampering or decoding failure.
	Decode(value string) (*entity.CookieSession, error)
}
