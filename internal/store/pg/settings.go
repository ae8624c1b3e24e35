package pg

import (
	"context"
	"database/sql"
	"errors"

	"volunteerhub.org/internal/settings"
)

// The system_settings table holds a single row with id 1, seeded by the
// migrations. Reads of a missing row fall back to defaults.

func (s *Store) GetSettings(ctx context.Context) (settings.Settings, error) {
	var (
		out   settings.Settings
		until sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select maintenance_mode, maintenance_message, maintenance_until, updated_at
		from system_settings where id = 1
	`).Scan(&out.MaintenanceMode, &out.MaintenanceMessage, &until, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Settings{}, nil
	}
	if err != nil {
		return settings.Settings{}, err
	}
	if until.Valid {
		t := until.Time
		out.MaintenanceUntil = &t
	}
	return out, nil
}

func (s *Store) UpdateSettings(ctx context.Context, next settings.Settings) (settings.Settings, error) {
	var until sql.NullTime
	if next.MaintenanceUntil != nil {
		until = sql.NullTime{Time: *next.MaintenanceUntil, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into system_settings (id, maintenance_mode, maintenance_message, maintenance_until, updated_at)
		values (1, $1, $2, $3, $4)
		on conflict (id) do update set
			maintenance_mode = excluded.maintenance_mode,
			maintenance_message = excluded.maintenance_message,
			maintenance_until = excluded.maintenance_until,
			updated_at = excluded.updated_at
	`, next.MaintenanceMode, next.MaintenanceMessage, until, next.UpdatedAt)
	if err != nil {
		return settings.Settings{}, err
	}
	return next, nil
}
