package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"volunteerhub.org/internal/audit"
)

func (s *Store) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	details := []byte("{}")
	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		details = data
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_logs (id, action, actor_id, target_id, details, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.Action, entry.ActorID, entry.TargetID, details, entry.CreatedAt)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]*audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, action, actor_id, target_id, details, created_at
		from audit_logs order by created_at desc limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*audit.Entry
	for rows.Next() {
		var (
			e   audit.Entry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.TargetID, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
