package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue uses any as the key type. Using a package-private type
// prevents collisions: only THIS package can create a key of type contextKey,
// so only this package can read or write the claims in the context.
type contextKey string

const claimsKey contextKey = "claims"

const (
	noTokenBody      = `{"error":"unauthorized","message":"no token provided"}`
	invalidTokenBody = `{"error":"invalid_token","message":"invalid or expired token"}`
)

// RequireBearer is a middleware that enforces authentication on protected routes.
//
// It reads "Authorization: Bearer <jwt>", verifies the token and stores the
// decoded Claims in the request context. A missing header (or a scheme other
// than Bearer) and a token that fails verification are both 401, with
// different error codes so clients can tell "log in" from "log in again".
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireBearer(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, noTokenBody)
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				unauthorized(w, invalidTokenBody)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the authenticated identity from the request context.
//
// Returns (Claims{}, false) if the request did not pass through RequireBearer.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok && c.UserID > 0
}

// WithClaims returns a copy of ctx carrying c. Handlers read it back with
// ClaimsFromContext; tests use it to skip the middleware.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// bearerToken extracts the token from the Authorization header.
// The scheme is matched case-insensitively (RFC 7235); the token must be non-empty.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="user-service"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(body))
}
