package middleware

import (
	"net/http"

	"github.com/baharkarakas/shop-backend/internal/api/httpx"
	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/models"
)

// RequireRole allows only callers whose token carries need. It must run
// after AuthMiddleware.Auth.
func RequireRole(need models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := Claims(r.Context())
			if !ok {
				httpx.WriteError(w, apperr.ErrUnauthorized)
				return
			}
			if claims.Role != need {
				httpx.WriteError(w, apperr.New(apperr.ErrForbidden, "requires role "+string(need)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
