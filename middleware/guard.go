package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// AccessCookieName is the cookie that carries the access token.
const AccessCookieName = "accessToken"

// AccessValidator verifies access tokens. *authcore.Engine implements it.
type AccessValidator interface {
	ValidateAccess(token string) (*authcore.AccessClaims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by [Guard].
func ClaimsFromContext(ctx context.Context) (*authcore.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.AccessClaims)
	return claims, ok && claims != nil
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *authcore.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Option configures a guard.
type Option func(*options)

type options struct {
	unauthorized http.Handler
	forbidden    http.Handler
}

// WithUnauthorizedHandler replaces the default plain-text 401 response.
func WithUnauthorizedHandler(h http.Handler) Option {
	return func(o *options) { o.unauthorized = h }
}

// WithForbiddenHandler replaces the default plain-text 403 response of RequireRole.
func WithForbiddenHandler(h http.Handler) Option {
	return func(o *options) { o.forbidden = h }
}

func buildOptions(opts []Option) options {
	o := options{
		unauthorized: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}),
		forbidden: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Guard rejects requests without a valid access token. The cookie wins over the
// Authorization header when both are present.
func Guard(validator AccessValidator, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				o.unauthorized.ServeHTTP(w, r)
				return
			}

			token, ok := AccessToken(r)
			if !ok {
				o.unauthorized.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateAccess(token)
			if err != nil {
				o.unauthorized.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole must run after Guard. Requests without claims get 401; claims with a
// role outside roles get 403.
func RequireRole(roles []authcore.Role, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	allowed := make(map[authcore.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				o.unauthorized.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				o.forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessToken extracts the access token from the request cookie or bearer header.
func AccessToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
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
