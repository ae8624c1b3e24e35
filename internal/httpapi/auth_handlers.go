package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"volunteerhub.org/internal/auth"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	UserID   string        `json:"user_id"`
	Email    string        `json:"email"`
	Role     string        `json:"role,omitempty"`
	Verified bool          `json:"verified"`
	Profile  *auth.Profile `json:"profile,omitempty"`
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "role must be VOLUNTEER or NGO")
		return
	}

	profile, err := a.auth.SignUp(r.Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	a.audit(r.Context(), "auth.signup", profile.ID, map[string]any{
		"role": string(profile.Role),
	})

	w.Header().Set("Location", "/v1/admin/users/"+profile.ID)
	writeJSON(w, http.StatusCreated, profile)
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			unauthorized(w, r, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "sign-in failed")
		return
	}

	a.audit(r.Context(), "auth.token.issued", session.UserID, map[string]any{
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     session.Token,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	resp := meResponse{
		UserID:   principal.UserID,
		Email:    principal.Email,
		Role:     string(principal.Role()),
		Verified: principal.Profile.Verified(),
		Profile:  principal.Profile,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Tokens are stateless, so sign-out is an audit event plus a hint to the
// client to drop its session. Revocation lists are out of scope for now.
func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	a.audit(r.Context(), "auth.signout", principal.UserID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		unauthorized(w, r, "unauthorized")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
