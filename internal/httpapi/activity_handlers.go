package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/ids"
)

type createActivityRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Capacity    int       `json:"capacity"`
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type listResponse[T any] struct {
	Items []T       `json:"items"`
	AsOf  time.Time `json:"as_of"`
}

func (a *API) handleActivitiesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listActivities(w, r)
	case http.MethodPost:
		a.createActivity(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleActivityResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/activities/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	if !ids.Valid(id) {
		writeError(w, r, http.StatusNotFound, "activity not found")
		return
	}

	switch len(parts) {
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getActivity(w, r, id)
	case 2:
		switch parts[1] {
		case "registrations":
			a.handleActivityRegistrations(w, r, id)
		case "reviews":
			a.handleActivityReviews(w, r, id)
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	case 3:
		if parts[1] == "registrations" && parts[2] == "export" {
			a.exportRegistrations(w, r, id)
			return
		}
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := ensureRole(w, r, auth.RequireNGO)
	if !ok {
		return
	}

	var req createActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	act, err := a.activities.Create(r.Context(), principal.UserID, req.Title, req.Description, req.Location, req.Date, req.Capacity)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}

	a.audit(r.Context(), "activity.create", act.ID, map[string]any{
		"title":    act.Title,
		"capacity": act.Capacity,
	})

	w.Header().Set("Location", "/v1/activities/"+act.ID)
	writeJSON(w, http.StatusCreated, act)
}

func (a *API) listActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := activity.Filter{
		Query:    r.URL.Query().Get("q"),
		Location: r.URL.Query().Get("location"),
		Limit:    limit,
	}
	items, err := a.activities.List(r.Context(), filter)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*activity.Activity]{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	act, err := a.activities.Get(r.Context(), id)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

// canManageActivity: the owning NGO and admins manage registrations and
// exports; everyone else is rejected before any data leaves the store.
func (a *API) canManageActivity(w http.ResponseWriter, r *http.Request, activityID string) (auth.Principal, bool) {
	principal, ok := ensureRole(w, r, auth.RequireNGOOrAdmin)
	if !ok {
		return auth.Principal{}, false
	}
	if principal.Role() == auth.RoleAdmin {
		return principal, true
	}
	act, err := a.activities.Get(r.Context(), activityID)
	if err != nil {
		handleActivityError(w, r, err)
		return auth.Principal{}, false
	}
	if act.NGOID != principal.UserID {
		forbidden(w, r, "activity belongs to another organization")
		return auth.Principal{}, false
	}
	return principal, true
}

func (a *API) handleActivityRegistrations(w http.ResponseWriter, r *http.Request, activityID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.canManageActivity(w, r, activityID); !ok {
			return
		}
		items, err := a.activities.RegistrationsForActivity(r.Context(), activityID)
		if err != nil {
			handleActivityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[*activity.Registration]{Items: items, AsOf: time.Now().UTC()})
	case http.MethodPost:
		principal, ok := ensureRole(w, r, auth.RequireVolunteer)
		if !ok {
			return
		}
		reg, err := a.activities.Register(r.Context(), activityID, principal.UserID)
		if err != nil {
			handleActivityError(w, r, err)
			return
		}
		a.audit(r.Context(), "registration.create", reg.ID, map[string]any{
			"activity_id": activityID,
		})
		w.Header().Set("Location", "/v1/registrations/"+reg.ID)
		writeJSON(w, http.StatusCreated, reg)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) exportRegistrations(w http.ResponseWriter, r *http.Request, activityID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.canManageActivity(w, r, activityID); !ok {
		return
	}
	data, err := a.activities.RegistrationsCSV(r.Context(), activityID)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations-`+activityID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) handleActivityReviews(w http.ResponseWriter, r *http.Request, activityID string) {
	switch r.Method {
	case http.MethodGet:
		status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
		if status == activity.ReviewPending {
			if _, ok := a.canManageActivity(w, r, activityID); !ok {
				return
			}
			items, err := a.activities.PendingReviews(r.Context(), activityID)
			if err != nil {
				handleActivityError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, listResponse[*activity.Review]{Items: items, AsOf: time.Now().UTC()})
			return
		}
		items, err := a.activities.ApprovedReviews(r.Context(), activityID)
		if err != nil {
			handleActivityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[*activity.Review]{Items: items, AsOf: time.Now().UTC()})
	case http.MethodPost:
		principal, ok := ensureRole(w, r, auth.RequireVolunteer)
		if !ok {
			return
		}
		var req submitReviewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		review, err := a.activities.SubmitReview(r.Context(), activityID, principal.UserID, req.Rating, req.Comment)
		if err != nil {
			handleActivityError(w, r, err)
			return
		}
		a.audit(r.Context(), "review.create", review.ID, map[string]any{
			"activity_id": activityID,
			"rating":      review.Rating,
		})
		w.Header().Set("Location", "/v1/reviews/"+review.ID)
		writeJSON(w, http.StatusCreated, review)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMyRegistrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	items, err := a.activities.RegistrationsForVolunteer(r.Context(), principal.UserID)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*activity.Registration]{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) handleMyReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	items, err := a.activities.ReviewsForVolunteer(r.Context(), principal.UserID)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*activity.Review]{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) handleRegistrationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/registrations/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "status" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	id := parts[0]

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))

	reg, err := a.activities.Registration(r.Context(), id)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	if !a.mayManageRegistration(r, principal, reg, status) {
		forbidden(w, r, "not allowed to change this registration")
		return
	}

	updated, err := a.activities.SetRegistrationStatus(r.Context(), id, status)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	a.audit(r.Context(), "registration.status.update", updated.ID, map[string]any{
		"status": updated.Status,
	})
	writeJSON(w, http.StatusOK, updated)
}

// mayManageRegistration: volunteers may cancel their own registration; the
// owning NGO and admins may set any status.
func (a *API) mayManageRegistration(r *http.Request, principal auth.Principal, reg *activity.Registration, status string) bool {
	switch principal.Role() {
	case auth.RoleAdmin:
		return true
	case auth.RoleVolunteer:
		return reg.VolunteerID == principal.UserID && status == activity.RegistrationCancelled
	case auth.RoleNGO:
		act, err := a.activities.Get(r.Context(), reg.ActivityID)
		if err != nil {
			return false
		}
		return act.NGOID == principal.UserID
	default:
		return false
	}
}

func (a *API) handleReviewResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/reviews/"), "/")
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodPut:
			a.updateOwnReview(w, r, parts[0])
		case http.MethodDelete:
			a.deleteOwnReview(w, r, parts[0])
		default:
			methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "status":
		a.moderateReview(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// moderateReview approves or rejects a pending review. The activity's owning
// NGO moderates its own reviews; admins moderate any.
func (a *API) moderateReview(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	review, err := a.activities.Review(r.Context(), id)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	if _, ok := a.canManageActivity(w, r, review.ActivityID); !ok {
		return
	}

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := a.activities.ModerateReview(r.Context(), id, req.Status)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	a.audit(r.Context(), "review.status.update", updated.ID, map[string]any{
		"status": updated.Status,
	})
	writeJSON(w, http.StatusOK, updated)
}

// updateOwnReview lets the submitting volunteer revise rating or comment;
// the edit returns the review to the moderation queue.
func (a *API) updateOwnReview(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := ensureRole(w, r, auth.RequireVolunteer)
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	review, err := a.activities.UpdateReview(r.Context(), id, principal.UserID, req.Rating, req.Comment)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	a.audit(r.Context(), "review.update", review.ID, map[string]any{
		"rating": review.Rating,
	})
	writeJSON(w, http.StatusOK, review)
}

func (a *API) deleteOwnReview(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := ensureRole(w, r, auth.RequireVolunteer)
	if !ok {
		return
	}
	if err := a.activities.DeleteReview(r.Context(), id, principal.UserID); err != nil {
		handleActivityError(w, r, err)
		return
	}
	a.audit(r.Context(), "review.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func handleActivityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, activity.ErrInvalidInput), errors.Is(err, activity.ErrClosedForPast):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, activity.ErrConflict), errors.Is(err, activity.ErrCapacityFull):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, activity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, activity.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
