package httpapi

import (
	"net/http"
	"time"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/settings"
)

type updateSettingsRequest struct {
	MaintenanceMode    bool       `json:"maintenance_mode"`
	MaintenanceMessage string     `json:"maintenance_message"`
	MaintenanceUntil   *time.Time `json:"maintenance_until"`
}

// handleSettings: reads are public so clients can show the maintenance banner
// before sign-in; writes are admin-only.
func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := a.settings.Get(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "settings lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, current)
	case http.MethodPut:
		if _, ok := ensureRole(w, r, auth.RequireAdmin); !ok {
			return
		}
		var req updateSettingsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := a.settings.Update(r.Context(), settings.Settings{
			MaintenanceMode:    req.MaintenanceMode,
			MaintenanceMessage: req.MaintenanceMessage,
			MaintenanceUntil:   req.MaintenanceUntil,
		})
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "settings update failed")
			return
		}
		if a.watcher != nil {
			a.watcher.Refresh(r.Context())
		}
		a.audit(r.Context(), "settings.update", "singleton", map[string]any{
			"maintenance_mode": updated.MaintenanceMode,
		})
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
