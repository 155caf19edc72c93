package auth

import (
	"net/http"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "admin_session"

// Verifier checks a session token.
type Verifier interface {
	Verify(token string) (*domain.Principal, bool)
}

// Gate authenticates requests from the session cookie.
type Gate struct {
	verifier Verifier
}

// NewGate creates a gate backed by verifier.
func NewGate(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

// Authenticate returns the principal for r. A missing cookie and an invalid
// token are the same outcome.
func (g *Gate) Authenticate(r *http.Request) (*domain.Principal, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, false
	}
	return g.verifier.Verify(cookie.Value)
}

// SessionCookie builds the cookie set on login.
func SessionCookie(token string, secure bool) http.Cookie {
	return http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie builds the cookie set on logout; it overwrites the
// session cookie with one that expires immediately.
func ExpiredSessionCookie(secure bool) http.Cookie {
	return http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
