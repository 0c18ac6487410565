// Package httpctx adapts Echo's request context to the transport-agnostic
// RequestContext the session use cases operate on.
package httpctx

import (
	"net/http"

	"saaskit/config"
	"saaskit/internal/domain/service"

	"github.com/labstack/echo/v4"
)

type requestContext struct {
	echoCtx echo.Context
	session *config.SessionConfig
}

// New wraps an Echo context as a service.RequestContext. The session cookie
// attributes (name, domain, secure flag) come from the session config.
func New(c echo.Context, session *config.SessionConfig) service.RequestContext {
	return &requestContext{
		echoCtx: c,
		session: session,
	}
}

func (rc *requestContext) UserAgent() string {
	return rc.echoCtx.Request().UserAgent()
}

func (rc *requestContext) IPAddress() string {
	return rc.echoCtx.RealIP()
}

func (rc *requestContext) SessionCookie() string {
	cookie, err := rc.echoCtx.Cookie(rc.session.CookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (rc *requestContext) SetSessionCookie(value string, maxAge int) {
	rc.echoCtx.SetCookie(rc.newCookie(value, maxAge))
}

func (rc *requestContext) ClearSessionCookie() {
	rc.echoCtx.SetCookie(rc.newCookie("", -1))
}

// newCookie builds the session cookie with the hardened defaults: HttpOnly
// keeps it away from scripts and SameSite=Lax blocks cross-site sends.
func (rc *requestContext) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     rc.session.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   rc.session.CookieDomain,
		MaxAge:   maxAge,
		Secure:   rc.session.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
