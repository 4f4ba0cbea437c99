package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"tailorfinder/utils"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminOnly guards maintenance routes with a shared token sent in
// AdminTokenHeader. With no token configured the routes are switched off.
func AdminOnly(token string) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				utils.HandleError(w, http.StatusForbidden, "Admin routes are disabled")
				return
			}
			given := strings.TrimSpace(r.Header.Get(AdminTokenHeader))
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				utils.HandleError(w, http.StatusUnauthorized, "Invalid admin token")
				return
			}
			handler.ServeHTTP(w, r)
		})
	}
}
