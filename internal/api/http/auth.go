package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/paylink/paylink/internal/domain/account"
)

type contextKey string

const identityKey contextKey = "identity"

// requireAuth resolves the bearer token to a caller identity and stores
// it on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		id, err := s.accountSvc.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) account.Identity {
	if id, ok := ctx.Value(identityKey).(account.Identity); ok {
		return id
	}
	return account.Anonymous
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
