package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	jwtutil "github.com/5w1tchy/book-reviews/internal/security/jwt"
)

// TokenVersions reports a user's current token version.
type TokenVersions interface {
	TokenVersion(ctx context.Context, userID string) (int, error)
}

const userIDKey ctxKey = 1

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok && v != ""
}

// RequireAuth verifies the Bearer JWT, checks its token version against the
// store, then injects the user id into the context.
func RequireAuth(tokens *jwtutil.Manager, versions TokenVersions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deny := func(detail string) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", detail)
		}

		raw := r.Header.Get("Authorization")
		if raw == "" {
			deny("missing Authorization header")
			return
		}
		tokenStr, err := bearer(raw)
		if err != nil {
			deny("invalid Authorization header")
			return
		}
		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			deny("invalid token")
			return
		}

		current, err := versions.TokenVersion(r.Context(), claims.Subject)
		if err != nil {
			deny("user not found")
			return
		}
		if claims.TokenVersion != current {
			deny("token revoked")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.Subject)))
	})
}

func bearer(h string) (string, error) {
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", errors.New("no bearer")
	}
	return strings.TrimSpace(tok), nil
}
