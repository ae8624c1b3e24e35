package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"volunteerhub.org/internal/auth"
)

const profileColumns = `id, name, role, verification_status, verified_at, verification_notes, created_at, updated_at`

func (s *Store) CreateProfile(ctx context.Context, p *auth.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		insert into profiles (id, name, role, verification_status, verification_notes, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, string(p.Role), p.VerificationStatus, p.VerificationNotes, p.CreatedAt, p.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrConflict
	}
	return err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*auth.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		select `+profileColumns+`
		from profiles where id = $1
	`, userID))
}

func (s *Store) ListProfiles(ctx context.Context) ([]*auth.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+profileColumns+`
		from profiles order by created_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*auth.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProfileName(ctx context.Context, userID, name string) (*auth.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		update profiles set name = $2, updated_at = now()
		where id = $1
		returning `+profileColumns+`
	`, userID, name))
}

func (s *Store) UpdateProfileRole(ctx context.Context, userID string, role auth.Role) (*auth.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		update profiles set role = $2, updated_at = now()
		where id = $1
		returning `+profileColumns+`
	`, userID, string(role)))
}

func (s *Store) UpdateProfileVerification(ctx context.Context, userID, status string, verifiedAt *time.Time, notes string) (*auth.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		update profiles
		set verification_status = $2, verified_at = $3, verification_notes = $4, updated_at = now()
		where id = $1
		returning `+profileColumns+`
	`, userID, status, verifiedAt, notes))
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*auth.Profile, error) {
	var (
		p          auth.Profile
		role       string
		verifiedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &role, &p.VerificationStatus, &verifiedAt, &p.VerificationNotes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Role = auth.Role(role)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	return &p, nil
}

func (s *Store) CreateCredential(ctx context.Context, c *auth.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		insert into credentials (user_id, email, password_hash, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, c.UserID, strings.ToLower(c.Email), c.PasswordHash, c.Status, c.CreatedAt, c.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrConflict
	}
	return err
}

func (s *Store) FindCredentialByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	return s.scanCredential(s.db.QueryRowContext(ctx, `
		select user_id, email, password_hash, status, created_at, updated_at
		from credentials where email = $1
	`, strings.ToLower(email)))
}

func (s *Store) FindCredential(ctx context.Context, userID string) (*auth.Credential, error) {
	return s.scanCredential(s.db.QueryRowContext(ctx, `
		select user_id, email, password_hash, status, created_at, updated_at
		from credentials where user_id = $1
	`, userID))
}

func (s *Store) scanCredential(row *sql.Row) (*auth.Credential, error) {
	var c auth.Credential
	err := row.Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
