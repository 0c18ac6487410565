package handler

import (
	"log/slog"
	"net/http"

	"saaskit/config"
	"saaskit/internal/delivery/http/httpctx"
	"saaskit/internal/delivery/http/middleware"
	"saaskit/internal/delivery/http/response"
	"saaskit/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type revokeSessionRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionHandler exposes session management to logged-in users: listing the
// devices they are signed in on and revoking sessions.
type SessionHandler struct {
	sessions usecase.SessionUsecase
	cfg      *config.Config
	logger   *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(sessions usecase.SessionUsecase, cfg *config.Config, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// List returns the caller's live sessions, most recently active first. The
// session on this request is flagged so clients can mark "this device".
func (h *SessionHandler) List(c echo.Context) error {
	enriched := middleware.CurrentSession(c)

	summaries, err := h.sessions.ListUserSessions(c.Request().Context(), enriched.Session.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, summary := range summaries {
		if summary.ID == enriched.Session.ID {
			summary.Current = true
		}
	}

	return response.Success(c, http.StatusOK, summaries, "Sessions retrieved successfully")
}

// Revoke ends one of the caller's sessions by its bearer token. A token that
// does not exist and a token belonging to another user answer identically, so
// the endpoint cannot be used to probe for live tokens.
func (h *SessionHandler) Revoke(c echo.Context) error {
	var req revokeSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid revoke input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	enriched := middleware.CurrentSession(c)

	revoked, err := h.sessions.RevokeSessionByToken(c.Request().Context(), req.Token, enriched.Session.UserID)
	if err != nil {
		return errors.WithStack(err)
	}
	if !revoked {
		return response.NotFound(c, "SESSION_NOT_FOUND", "No matching session to revoke")
	}

	return response.Success(c, http.StatusOK, map[string]bool{"revoked": true}, "Session revoked successfully")
}

// RevokeOthers ends every session of the caller except the one on this
// request.
func (h *SessionHandler) RevokeOthers(c echo.Context) error {
	rc := httpctx.New(c, h.cfg.Session)

	count, err := h.sessions.RevokeOtherSessions(c.Request().Context(), rc)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"revoked": count}, "Other sessions revoked successfully")
}

// RevokeAll ends every session of the caller, including the current one, and
// clears the cookie.
func (h *SessionHandler) RevokeAll(c echo.Context) error {
	enriched := middleware.CurrentSession(c)

	count, err := h.sessions.RevokeAllSessions(c.Request().Context(), enriched.Session.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	// The current session is gone too, so drop the client's cookie.
	httpctx.New(c, h.cfg.Session).ClearSessionCookie()

	return response.Success(c, http.StatusOK, map[string]int64{"revoked": count}, "All sessions revoked successfully")
}
