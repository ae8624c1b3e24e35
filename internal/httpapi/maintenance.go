package httpapi

import (
	"net/http"
	"strings"
	"time"

	"volunteerhub.org/internal/auth"
)

// maintenanceExempt stays reachable while maintenance mode is on: operators
// still need health checks, metrics, sign-in and the admin surface.
var maintenanceExempt = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/token",
	"/v1/auth/signout",
	"/v1/settings",
}

func (a *API) withMaintenance(next http.Handler) http.Handler {
	if a.watcher == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.watcher.InMaintenance(time.Now()) {
			next.ServeHTTP(w, r)
			return
		}
		if isMaintenanceExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if principal, ok := auth.PrincipalFromContext(r.Context()); ok && principal.Role() == auth.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}

		msg := a.watcher.Current().MaintenanceMessage
		if msg == "" {
			msg = "service is under maintenance"
		}
		w.Header().Set("Retry-After", "300")
		writeError(w, r, http.StatusServiceUnavailable, msg)
	})
}

func isMaintenanceExempt(path string) bool {
	for _, p := range maintenanceExempt {
		if path == p {
			return true
		}
	}
	return strings.HasPrefix(path, "/v1/admin/")
}
