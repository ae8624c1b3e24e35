package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"volunteerhub.org/internal/ids"
)

const defaultAccessTTL = 15 * time.Minute

// Service provides sign-up, sign-in and token verification on top of a Store.
type Service struct {
	store     Store
	now       func() time.Time
	accessTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// NewService constructs a Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	svc := &Service{
		store:     store,
		now:       time.Now,
		accessTTL: defaultAccessTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignUp creates a credential plus its matching profile row. ADMIN is never
// self-assigned: only volunteer and NGO sign-ups are accepted here, admin
// promotion goes through ChangeRole.
func (s *Service) SignUp(ctx context.Context, name, email, password string, role Role) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if role != RoleVolunteer && role != RoleNGO {
		return nil, fmt.Errorf("%w: role must be VOLUNTEER or NGO", ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	userID := ids.New()
	cred := &Credential{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash,
		Status:       UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, err
	}
	verification := VerificationUnverified
	if role == RoleNGO {
		verification = VerificationPending
	}
	profile := &Profile{
		ID:                 userID,
		Name:               name,
		Role:               role,
		VerificationStatus: verification,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SignIn authenticates credentials and returns a fresh session. Bad
// credentials and disabled accounts collapse into ErrUnauthorized so the
// caller cannot distinguish them.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrUnauthorized
	}
	cred, err := s.store.FindCredentialByEmail(ctx, email)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if cred.Status != UserStatusActive {
		return nil, ErrUnauthorized
	}
	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}

	role := Role("")
	if profile, err := s.store.GetProfile(ctx, cred.UserID); err == nil {
		role = profile.Role
	}
	token, err := GenerateToken(cred.UserID, cred.Email, role, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:    cred.UserID,
		Email:     cred.Email,
		Token:     token,
		ExpiresAt: s.now().UTC().Add(s.accessTTL),
	}, nil
}

// Authenticate validates an access token and resolves its principal. The
// profile is re-read from the store so authorization never trusts a stale
// role claim.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	principal := Principal{UserID: claims.Subject, Email: claims.Email}
	profile, err := s.store.GetProfile(ctx, claims.Subject)
	switch {
	case err == nil:
		principal.Profile = profile
	case errors.Is(err, ErrNotFound):
		// Session without a profile row: the principal stays role-less and
		// satisfies no role-bound requirement.
	default:
		return Principal{}, err
	}
	return principal, nil
}

// Profile fetches a profile row by user identifier.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.GetProfile(ctx, userID)
}

// ListProfiles returns all profiles, newest first per store ordering.
func (s *Service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	return s.store.ListProfiles(ctx)
}

// Rename updates the profile display name.
func (s *Service) Rename(ctx context.Context, userID, name string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return nil, fmt.Errorf("%w: user_id and name are required", ErrInvalidInput)
	}
	return s.store.UpdateProfileName(ctx, userID, name)
}

// PendingVerifications lists NGO profiles awaiting a verification decision.
func (s *Service) PendingVerifications(ctx context.Context) ([]*Profile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := profiles[:0]
	for _, p := range profiles {
		if p.Role == RoleNGO && p.VerificationStatus == VerificationPending {
			out = append(out, p)
		}
	}
	return out, nil
}

// SetVerification records an admin's verification decision on an NGO
// profile. Approval stamps verified_at; rejection clears it.
func (s *Service) SetVerification(ctx context.Context, userID, status, notes string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != VerificationVerified && status != VerificationRejected {
		return nil, fmt.Errorf("%w: status must be VERIFIED or REJECTED", ErrInvalidInput)
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Role != RoleNGO {
		return nil, fmt.Errorf("%w: verification applies to NGO profiles", ErrInvalidInput)
	}
	var verifiedAt *time.Time
	if status == VerificationVerified {
		now := s.now().UTC()
		verifiedAt = &now
	}
	return s.store.UpdateProfileVerification(ctx, userID, status, verifiedAt, strings.TrimSpace(notes))
}

// ChangeRole sets a user's role. Administrative operation; callers are
// expected to gate it behind RequireAdmin and record an audit entry.
func (s *Service) ChangeRole(ctx context.Context, userID string, role Role) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !role.Known() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.store.UpdateProfileRole(ctx, userID, role)
}
