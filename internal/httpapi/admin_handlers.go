package httpapi

import (
	"net/http"
	"strings"
	"time"

	"volunteerhub.org/internal/auth"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

type setVerificationRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type adminStatsResponse struct {
	TotalUsers         int       `json:"total_users"`
	TotalActivities    int       `json:"total_activities"`
	TotalRegistrations int       `json:"total_registrations"`
	TotalReviews       int       `json:"total_reviews"`
	AsOf               time.Time `json:"as_of"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	profiles, err := a.auth.ListProfiles(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*auth.Profile]{Items: profiles, AsOf: time.Now().UTC()})
}

func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) == 1 && parts[0] != "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		profile, err := a.auth.Profile(r.Context(), parts[0])
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
		return
	}
	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch parts[1] {
	case "role":
	case "verification":
		a.setUserVerification(w, r, parts[0])
		return
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "role must be VOLUNTEER, NGO or ADMIN")
		return
	}

	profile, err := a.auth.ChangeRole(r.Context(), parts[0], role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "admin.user.role.update", profile.ID, map[string]any{
		"role": string(profile.Role),
	})
	writeJSON(w, http.StatusOK, profile)
}

// setUserVerification records an admin's decision on an NGO verification
// request.
func (a *API) setUserVerification(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req setVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := a.auth.SetVerification(r.Context(), userID, req.Status, req.Notes)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "admin.user.verification.update", profile.ID, map[string]any{
		"verification_status": profile.VerificationStatus,
	})
	writeJSON(w, http.StatusOK, profile)
}

// handleAdminVerifications lists NGO profiles waiting on a verification
// decision.
func (a *API) handleAdminVerifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	profiles, err := a.auth.PendingVerifications(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*auth.Profile]{Items: profiles, AsOf: time.Now().UTC()})
}

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	profiles, err := a.auth.ListProfiles(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	stats, err := a.activities.Stats(r.Context())
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminStatsResponse{
		TotalUsers:         len(profiles),
		TotalActivities:    stats.TotalActivities,
		TotalRegistrations: stats.TotalRegistrations,
		TotalReviews:       stats.TotalReviews,
		AsOf:               time.Now().UTC(),
	})
}

func (a *API) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.recorder.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"as_of": time.Now().UTC(),
	})
}
