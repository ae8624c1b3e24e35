package auth

import (
	"context"
	"time"
)

// ProfileStore manages profile rows keyed by user identifier.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
	UpdateProfileName(ctx context.Context, userID, name string) (*Profile, error)
	UpdateProfileRole(ctx context.Context, userID string, role Role) (*Profile, error)
	UpdateProfileVerification(ctx context.Context, userID, status string, verifiedAt *time.Time, notes string) (*Profile, error)
}

// CredentialStore manages sign-in material.
type CredentialStore interface {
	CreateCredential(ctx context.Context, c *Credential) error
	FindCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	FindCredential(ctx context.Context, userID string) (*Credential, error)
}

// Store is the persistence surface required by the auth subsystem.
type Store interface {
	ProfileStore
	CredentialStore
}
