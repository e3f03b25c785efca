package auth

import (
	"context"
	"net/http"
	"strings"

	"orders-api/internal/account"
	"orders-api/internal/token"
)

// Identity is the caller attached to the request context after a bearer token
// checks out.
type Identity struct {
	AccountID string
	Subject   string
	Role      account.Role
}

type contextKey struct{}

var identityKey contextKey

func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given caller identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Authenticate extracts and verifies a bearer access token once per request.
// Requests without a usable credential pass through unauthenticated rather
// than being rejected here: some routes need no identity, and rejecting is
// the guards' job, not the authenticator's. Never mutates persisted state.
func Authenticate(codec *token.Codec, store account.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := codec.Verify(value, token.KindAccess)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		acc, err := store.FindByEmail(r.Context(), claims.Subject)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		identity := Identity{AccountID: acc.ID, Subject: acc.Email, Role: acc.Role}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAuthenticated rejects requests that carry no established identity.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers whose role carries no administrative rights.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !identity.Role.Admin() {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	value := strings.TrimSpace(parts[1])
	if value == "" {
		return "", false
	}

	return value, true
}
