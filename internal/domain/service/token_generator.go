package service

// TokenGenerator produces opaque, unguessable session tokens. Token strings
// are bearer credentials; implementations must draw from a cryptographic
// randomness source.
type TokenGenerator interface {
	// Generate returns a new URL-safe token string.
	Generate() (string, error)
}
