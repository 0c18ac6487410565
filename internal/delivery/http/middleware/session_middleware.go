package middleware

import (
	"log/slog"

	"saaskit/config"
	deliverycontext "saaskit/internal/delivery/context"
	"saaskit/internal/delivery/http/httpctx"
	"saaskit/internal/domain/entity"
	domainerrors "saaskit/internal/domain/errors"
	"saaskit/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// sessionContextKey is the echo.Context key holding the resolved session.
const sessionContextKey = "session"

// SessionMiddleware resolves the request's session cookie against the store
// and exposes the result to handlers. The store is authoritative: whatever
// the cookie claims, only a live store row yields a session here.
type SessionMiddleware struct {
	sessions usecase.SessionUsecase
	cfg      *config.Config
	logger   *slog.Logger
}

// NewSessionMiddleware is the constructor for SessionMiddleware.
func NewSessionMiddleware(sessions usecase.SessionUsecase, cfg *config.Config, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, cfg: cfg, logger: logger}
}

// LoadSession validates the session cookie and stores the enriched session on
// the context. Requests without a usable session pass through with no session
// set; gating is left to RequireSession.
func (m *SessionMiddleware) LoadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc := httpctx.New(c, m.cfg.Session)

		enriched, err := m.sessions.GetSession(c.Request().Context(), rc)
		if err != nil {
			return errors.WithStack(err)
		}

		if enriched != nil {
			c.Set(sessionContextKey, enriched)
		}

		return next(c)
	}
}

// RequireSession rejects requests that did not resolve to a live session.
// It must be used AFTER LoadSession.
func (m *SessionMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentSession(c) == nil {
			return domainerrors.ErrSessionInvalid
		}

		return next(c)
	}
}

// RequireFreshSession additionally demands that the session was active
// recently enough for sensitive operations. It must be used AFTER
// RequireSession.
func (m *SessionMiddleware) RequireFreshSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc := httpctx.New(c, m.cfg.Session)

		if err := m.sessions.CheckSessionFreshness(c.Request().Context(), rc); err != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).Debug("Freshness check rejected request",
				"error", err.Error(),
			)

			return errors.WithStack(err)
		}

		return next(c)
	}
}

// CurrentSession returns the session resolved by LoadSession, or nil when the
// request is anonymous.
func CurrentSession(c echo.Context) *entity.EnrichedSession {
	enriched, ok := c.Get(sessionContextKey).(*entity.EnrichedSession)
	if !ok {
		return nil
	}

	return enriched
}
