// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"

	"saaskit/internal/domain/service"
)

// sessionTokenBytes is the entropy of a session token before encoding.
// 32 bytes gives 256 bits, far beyond brute-force reach.
const sessionTokenBytes = 32

// randomTokenGenerator implements TokenGenerator with crypto/rand.
type randomTokenGenerator struct{}

// NewRandomTokenGenerator is the constructor for randomTokenGenerator.
func NewRandomTokenGenerator() service.TokenGenerator {
	return &randomTokenGenerator{}
}

// Generate returns a URL-safe base64 token drawn from crypto/rand.
func (g *randomTokenGenerator) Generate() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes for session token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
