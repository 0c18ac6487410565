// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"saaskit/config"
	"saaskit/internal/delivery/http/httpctx"
	"saaskit/internal/delivery/http/middleware"
	"saaskit/internal/delivery/http/response"
	"saaskit/internal/domain/entity"
	"saaskit/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// signupRequest is the signup payload. Password length is checked here so the
// use case never sees trivially weak input.
type signupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=32"`
	FirstName string `json:"firstName" validate:"max=64"`
	LastName  string `json:"lastName" validate:"max=64"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// sessionResponse is the session excerpt returned at login and signup. This
// is the only surface that exposes the raw bearer token.
type sessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type authResponse struct {
	User    entity.UserSnapshot `json:"user"`
	Session *sessionResponse    `json:"session,omitempty"`
}

// AuthHandler holds dependencies for signup, login and session-introspection
// handlers.
type AuthHandler struct {
	uc     usecase.UserUsecase
	cfg    *config.Config
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.UserUsecase, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		cfg:    cfg,
		logger: logger,
	}
}

// Signup handles the user registration request. A successful signup logs the
// user in; when the session could not be started the account still exists and
// the response simply omits the session.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid signup input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	input := &usecase.SignupInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}

	rc := httpctx.New(c, h.cfg.Session)
	output, err := h.uc.Signup(c.Request().Context(), input, rc)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newAuthResponse(output.User, output.Session), "User registered successfully")
}

// Login handles the user login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	input := &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}

	rc := httpctx.New(c, h.cfg.Session)
	output, err := h.uc.Login(c.Request().Context(), input, rc)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAuthResponse(output.User, output.Session), "Login successful")
}

// Logout ends the current session and clears the cookie. Logging out without
// a session is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	rc := httpctx.New(c, h.cfg.Session)
	if err := h.uc.Logout(c.Request().Context(), rc); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"}, "Logout successful")
}

// Me returns the current session's user, activity and subscription view.
func (h *AuthHandler) Me(c echo.Context) error {
	enriched := middleware.CurrentSession(c)

	return response.Success(c, http.StatusOK, map[string]any{
		"user":         enriched.Cookie.User,
		"session":      enriched.Session.Summary(),
		"lastActivity": enriched.LastActivity,
		"subscription": enriched.Subscription,
	}, "Session retrieved successfully")
}

func newAuthResponse(user *entity.User, session *entity.SessionHandle) *authResponse {
	resp := &authResponse{User: user.Snapshot()}
	if session != nil {
		resp.Session = &sessionResponse{
			ID:        session.ID,
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		}
	}

	return resp
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
