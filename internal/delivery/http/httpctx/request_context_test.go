package httpctx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"saaskit/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	rec := httptest.NewRecorder()

	return echo.New().NewContext(req, rec), rec
}

func sessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		CookieName:   "saaskit_session",
		CookieDomain: "example.com",
		CookieSecure: true,
	}
}

func TestRequestContext_ReadsSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "saaskit_session", Value: "cookie-value"})
	c, _ := newTestContext(t, req)

	rc := New(c, sessionConfig())

	assert.Equal(t, "cookie-value", rc.SessionCookie())
}

func TestRequestContext_MissingCookieIsEmpty(t *testing.T) {
	c, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))

	rc := New(c, sessionConfig())

	assert.Empty(t, rc.SessionCookie())
}

func TestRequestContext_SetSessionCookieAttributes(t *testing.T) {
	c, rec := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))

	rc := New(c, sessionConfig())
	rc.SetSessionCookie("signed-value", 3600)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, "saaskit_session", cookie.Name)
	assert.Equal(t, "signed-value", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, "example.com", cookie.Domain)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestRequestContext_ClearSessionCookie(t *testing.T) {
	c, rec := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))

	rc := New(c, sessionConfig())
	rc.ClearSessionCookie()

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequestContext_ClientMetadata(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-browser/1.0")
	req.RemoteAddr = "203.0.113.7:54321"
	c, _ := newTestContext(t, req)

	rc := New(c, sessionConfig())

	assert.Equal(t, "test-browser/1.0", rc.UserAgent())
	assert.Equal(t, "203.0.113.7", rc.IPAddress())
}
