package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/store/memory"
)

func newTestService(t *testing.T) (*auth.Service, *memory.Store) {
	t.Helper()
	t.Setenv("VHUB_AUTH_SECRET", "unit-test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	store := memory.New()
	svc, err := auth.NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.SignUp(ctx, "Dana", "Dana@Example.com", "pa55word", auth.RoleNGO)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if profile.Role != auth.RoleNGO {
		t.Fatalf("unexpected role: %s", profile.Role)
	}

	session, err := svc.SignIn(ctx, "dana@example.com", "pa55word")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.UserID != profile.ID {
		t.Fatalf("session user %s, profile %s", session.UserID, profile.ID)
	}
	if session.Expired(time.Now()) {
		t.Fatal("fresh session should not be expired")
	}

	principal, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.Role() != auth.RoleNGO {
		t.Fatalf("principal role %s, want NGO", principal.Role())
	}
}

func TestSignUpRejectsAdminRole(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SignUp(context.Background(), "Eve", "eve@example.com", "pa55word", auth.RoleAdmin)
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "Dana", "dana@example.com", "pa55word", auth.RoleVolunteer); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	_, err := svc.SignUp(ctx, "Other", "DANA@example.com", "different", auth.RoleVolunteer)
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "Dana", "dana@example.com", "pa55word", auth.RoleVolunteer); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	cases := []struct{ email, password string }{
		{"dana@example.com", "wrong"},
		{"nobody@example.com", "pa55word"},
		{"", ""},
	}
	for _, tc := range cases {
		if _, err := svc.SignIn(ctx, tc.email, tc.password); !errors.Is(err, auth.ErrUnauthorized) {
			t.Fatalf("SignIn(%q): expected ErrUnauthorized, got %v", tc.email, err)
		}
	}
}

func TestAuthenticateRereadsRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.SignUp(ctx, "Dana", "dana@example.com", "pa55word", auth.RoleVolunteer)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	session, err := svc.SignIn(ctx, "dana@example.com", "pa55word")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	// Promote after the token was issued: the next Authenticate must see
	// the stored role, not the stale claim.
	if _, err := svc.ChangeRole(ctx, profile.ID, auth.RoleAdmin); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	principal, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.Role() != auth.RoleAdmin {
		t.Fatalf("principal role %s, want ADMIN", principal.Role())
	}
}

func TestAuthenticateWithoutProfile(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// A credential row with no profile can still authenticate, but the
	// principal carries no role and fails every role-bound requirement.
	hash, err := auth.HashPassword("pa55word")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now().UTC()
	cred := &auth.Credential{
		UserID:       "orphan-1",
		Email:        "orphan@example.com",
		PasswordHash: hash,
		Status:       auth.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateCredential(ctx, cred); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	session, err := svc.SignIn(ctx, "orphan@example.com", "pa55word")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	principal, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.Profile != nil {
		t.Fatal("expected role-less principal")
	}
	if auth.RequireNGOOrAdmin.Satisfied(principal.Role()) {
		t.Fatal("role-less principal must not satisfy role-bound requirements")
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Authenticate(context.Background(), "not-a-token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRenameAndChangeRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.SignUp(ctx, "Dana", "dana@example.com", "pa55word", auth.RoleVolunteer)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	renamed, err := svc.Rename(ctx, profile.ID, "Dana R.")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Name != "Dana R." {
		t.Fatalf("unexpected name: %s", renamed.Name)
	}
	if _, err := svc.Rename(ctx, profile.ID, "  "); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, profile.ID, auth.Role("INTERN")); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestSignUpStartsVerification(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ngo, err := svc.SignUp(ctx, "Green NGO", "ngo@example.com", "pa55word", auth.RoleNGO)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if ngo.VerificationStatus != auth.VerificationPending {
		t.Fatalf("NGO verification %s, want PENDING", ngo.VerificationStatus)
	}
	if ngo.Verified() {
		t.Fatal("pending NGO must not be verified")
	}

	vol, err := svc.SignUp(ctx, "Vera", "vera@example.com", "pa55word", auth.RoleVolunteer)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if vol.VerificationStatus != auth.VerificationUnverified {
		t.Fatalf("volunteer verification %s, want UNVERIFIED", vol.VerificationStatus)
	}
}

func TestSetVerification(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ngo, err := svc.SignUp(ctx, "Green NGO", "ngo@example.com", "pa55word", auth.RoleNGO)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	verified, err := svc.SetVerification(ctx, ngo.ID, "verified", "documents checked")
	if err != nil {
		t.Fatalf("SetVerification: %v", err)
	}
	if verified.VerificationStatus != auth.VerificationVerified {
		t.Fatalf("status %s, want VERIFIED", verified.VerificationStatus)
	}
	if verified.VerifiedAt == nil {
		t.Fatal("expected verified_at to be stamped")
	}
	if verified.VerificationNotes != "documents checked" {
		t.Fatalf("unexpected notes: %q", verified.VerificationNotes)
	}
	if !verified.Verified() {
		t.Fatal("expected Verified() to report true")
	}

	rejected, err := svc.SetVerification(ctx, ngo.ID, "REJECTED", "certificate expired")
	if err != nil {
		t.Fatalf("SetVerification reject: %v", err)
	}
	if rejected.VerificationStatus != auth.VerificationRejected {
		t.Fatalf("status %s, want REJECTED", rejected.VerificationStatus)
	}
	if rejected.VerifiedAt != nil {
		t.Fatal("rejection must clear verified_at")
	}

	if _, err := svc.SetVerification(ctx, ngo.ID, "PENDING", ""); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for PENDING decision, got %v", err)
	}

	vol, err := svc.SignUp(ctx, "Vera", "vera@example.com", "pa55word", auth.RoleVolunteer)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SetVerification(ctx, vol.ID, "VERIFIED", ""); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for volunteer target, got %v", err)
	}
}

func TestPendingVerifications(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ngo, err := svc.SignUp(ctx, "Green NGO", "ngo@example.com", "pa55word", auth.RoleNGO)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SignUp(ctx, "Vera", "vera@example.com", "pa55word", auth.RoleVolunteer); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	pending, err := svc.PendingVerifications(ctx)
	if err != nil {
		t.Fatalf("PendingVerifications: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ngo.ID {
		t.Fatalf("expected only the NGO pending, got %+v", pending)
	}

	if _, err := svc.SetVerification(ctx, ngo.ID, "VERIFIED", ""); err != nil {
		t.Fatalf("SetVerification: %v", err)
	}
	pending, err = svc.PendingVerifications(ctx)
	if err != nil {
		t.Fatalf("PendingVerifications: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue, got %d", len(pending))
	}
}
