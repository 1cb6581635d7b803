package delivery

import (
	"net/http"

	"github.com/awais2281/rizqa-ai/internal/ports"
)

// AdminOnly requires a valid X-Auth header when the guard is enabled.
func AdminOnly(auth ports.AdminAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("X-Auth")
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Detail: "missing token"})
				return
			}

			ok, _ := auth.ValidateToken(r.Context(), token)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Detail: "invalid token"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
