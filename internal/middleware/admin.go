package middleware

import (
	"net/http"

	"github.com/mkamau/tokenvault/internal/auth"
	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/handler"
)

// AdminOnly rejects non-admin callers. It must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			handler.RespondAppError(w, handler.ErrMissingToken, nil)
			return
		}

		if identity.Role != domain.AccountRoleAdmin {
			handler.RespondAppError(w, handler.ErrForbidden, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
