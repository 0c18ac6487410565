// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"saaskit/config"
	"saaskit/internal/domain/entity"
	"saaskit/internal/domain/service"
)

// cookieClaims is the JWT payload carried by the session cookie. The claims
// mirror the session row; expiry is deliberately absent because the store
// decides liveness, not the cookie.
type cookieClaims struct {
	User       entity.UserSnapshot `json:"user"`
	SessionID  string              `json:"sessionId"`
	LoggedInAt int64               `json:"loggedInAt"`
	jwt.RegisteredClaims
}

// jwtCookieCodec signs the cookie payload as an HS256 JWT.
type jwtCookieCodec struct {
	secret []byte
}

// NewJWTCookieCodec is the constructor for jwtCookieCodec.
func NewJWTCookieCodec(cfg *config.Config) (service.CookieCodec, error) {
	if cfg == nil || cfg.Session == nil || cfg.Session.CookieSecret == "" {
		return nil, errors.New("session cookie secret must be provided")
	}

	return &jwtCookieCodec{secret: []byte(cfg.Session.CookieSecret)}, nil
}

// Encode serializes and signs a cookie payload for transport.
func (c *jwtCookieCodec) Encode(cookie *entity.CookieSession) (string, error) {
	claims := cookieClaims{
		User:       cookie.User,
		SessionID:  cookie.SessionID.String(),
		LoggedInAt: cookie.LoggedInAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(cookie.LoggedInAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session cookie")
	}

	return signed, nil
}

// Decode verifies the signature and returns the embedded payload. Any
// signature or payload problem surfaces as service.ErrCookieInvalid.
func (c *jwtCookieCodec) Decode(value string) (*entity.CookieSession, error) {
	claims := &cookieClaims{}

	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Wrap(service.ErrCookieInvalid, "session cookie failed verification")
	}

	sessionID, err := parseSessionID(claims.SessionID)
	if err != nil {
		return nil, errors.Wrap(service.ErrCookieInvalid, "session cookie carries malformed session id")
	}

	return &entity.CookieSession{
		User:       claims.User,
		SessionID:  sessionID,
		LoggedInAt: time.Unix(claims.LoggedInAt, 0).UTC(),
	}, nil
}
