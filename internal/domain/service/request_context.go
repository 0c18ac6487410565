package service

// RequestContext abstracts the per-request transport surface the session
// lifecycle needs: client metadata for auditing and the session cookie slot.
// The HTTP layer adapts its framework context to this interface so the use
// cases stay transport-agnostic.
type RequestContext interface {
	// UserAgent returns the client's User-Agent header, possibly empty.
	UserAgent() string

	// IPAddress returns the client IP as seen by the server.
	IPAddress() string

	// SessionCookie returns the raw session cookie value, or an empty
	// string when the request carries none.
	SessionCookie() string

	// SetSessionCookie writes the signed session cookie on the response
	// with maxAge seconds until expiry.
	SetSessionCookie(value string, maxAge int)

	// ClearSessionCookie instructs the client to drop the session cookie.
	ClearSessionCookie()
}
