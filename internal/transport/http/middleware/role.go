package middleware

import (
	"net/http"
)

// RequireRole allows access only to callers whose stored role matches one of
// the provided role names (e.g. domain.RoleAdmin). It must run after Auth.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				writeUnauthenticated(w, "unauthorized")
				return
			}
			for _, role := range allowedRoles {
				if caller.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, CodeFailure, "insufficient permissions")
		})
	}
}
