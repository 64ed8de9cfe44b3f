package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi/response"
)

// Authenticator is the engine surface Guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*tokenauth.Principal, error)
}

// PrincipalFromContext returns the principal injected by Guard.
func PrincipalFromContext(ctx context.Context) (*tokenauth.Principal, bool) {
	return tokenauth.PrincipalFromContext(ctx)
}

// Guard rejects requests without a valid bearer access token and stores the
// authenticated principal in the request context.
func Guard(engine Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				response.Error(w, tokenauth.ErrUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				response.Error(w, tokenauth.ErrUnauthorized)
				return
			}

			ctx := WithClientIP(r)
			p, err := engine.Authenticate(ctx, token)
			if err != nil {
				response.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(tokenauth.WithPrincipal(ctx, p)))
		})
	}
}

// RequireAuthority rejects authenticated requests whose principal lacks
// authority. It must be mounted after Guard.
func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := tokenauth.PrincipalFromContext(r.Context())
			if !ok {
				response.Error(w, tokenauth.ErrUnauthorized)
				return
			}
			if !p.HasAuthority(authority) {
				response.Error(w, tokenauth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// WithClientIP returns r's context carrying the remote host for audit events.
func WithClientIP(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return tokenauth.WithClientIP(r.Context(), host)
}
