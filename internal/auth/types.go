package auth

import "time"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// NGO verification statuses. Volunteers stay UNVERIFIED; NGO sign-ups enter
// PENDING and an admin moves them to VERIFIED or REJECTED.
const (
	VerificationUnverified = "UNVERIFIED"
	VerificationPending    = "PENDING"
	VerificationVerified   = "VERIFIED"
	VerificationRejected   = "REJECTED"
)

// Profile is the application's per-user record: one row per user identifier,
// carrying at minimum a display name and a role. It is read-only from the
// access-gating core's perspective.
type Profile struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Role               Role       `json:"role"`
	VerificationStatus string     `json:"verification_status,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	VerificationNotes  string     `json:"verification_notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Verified reports whether an admin has approved this NGO's verification
// request. Non-NGO profiles are never verified.
func (p *Profile) Verified() bool {
	return p != nil && p.Role == RoleNGO && p.VerificationStatus == VerificationVerified
}

// Credential pairs a user identifier with its sign-in material.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is an authenticated identity with its resolved profile.
type Principal struct {
	UserID  string
	Email   string
	Profile *Profile
}

// Role returns the principal's role, or the empty role when the profile is
// missing (which satisfies no role-bound requirement).
func (p Principal) Role() Role {
	if p.Profile == nil {
		return ""
	}
	return p.Profile.Role
}

// Session mirrors the backend's notion of "who is logged in right now".
// Token metadata is opaque to everything except the auth service itself.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's token lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
