package api

import (
	"context"
	"net"
	"net/http"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/domain"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	principalKey ctxKey = "principal"
	clientIPKey  ctxKey = "client_ip"
)

// errUnauthorized is the only response to a missing, invalid or expired session.
var errUnauthorized = domainerrors.Unauthenticated("Unauthorized.")

// GetPrincipal returns the authenticated operator from context.
// Returns 401 error if the request carries no valid session.
func GetPrincipal(ctx context.Context) (*domain.Principal, error) {
	principal, ok := ctx.Value(principalKey).(*domain.Principal)
	if !ok || !principal.IsAdmin() {
		return nil, errUnauthorized
	}
	return principal, nil
}

// clientIP returns the address recorded by sessionMiddleware.
func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// sessionMiddleware resolves the session cookie and stores the principal in
// context. Requests without a valid session continue anonymously; handlers
// that need one call GetPrincipal.
func sessionMiddleware(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey, remoteHost(r.RemoteAddr))

			if principal, ok := gate.Authenticate(r); ok {
				ctx = context.WithValue(ctx, principalKey, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// remoteHost strips the port from addr. chi's RealIP middleware has already
// replaced RemoteAddr with the forwarded client address when present.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
