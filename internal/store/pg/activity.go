package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"volunteerhub.org/internal/activity"
)

func (s *Store) CreateActivity(ctx context.Context, a *activity.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		insert into activities (id, ngo_id, title, description, location, date, capacity, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.NGOID, a.Title, a.Description, a.Location, a.Date, a.Capacity, a.CreatedAt, a.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return activity.ErrConflict
	}
	return err
}

func (s *Store) GetActivity(ctx context.Context, id string) (*activity.Activity, error) {
	var a activity.Activity
	err := s.db.QueryRowContext(ctx, `
		select id, ngo_id, title, description, location, date, capacity, created_at, updated_at
		from activities where id = $1
	`, id).Scan(&a.ID, &a.NGOID, &a.Title, &a.Description, &a.Location, &a.Date, &a.Capacity, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListActivities(ctx context.Context, f activity.Filter) ([]*activity.Activity, error) {
	query := `
		select id, ngo_id, title, description, location, date, capacity, created_at, updated_at
		from activities
		where ($1 = '' or title ilike '%' || $1 || '%' or description ilike '%' || $1 || '%')
		  and ($2 = '' or location ilike '%' || $2 || '%')
		order by date asc
		limit $3
	`
	rows, err := s.db.QueryContext(ctx, query, f.Query, f.Location, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*activity.Activity
	for rows.Next() {
		var a activity.Activity
		if err := rows.Scan(&a.ID, &a.NGOID, &a.Title, &a.Description, &a.Location, &a.Date, &a.Capacity, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) CreateRegistration(ctx context.Context, r *activity.Registration) error {
	_, err := s.db.ExecContext(ctx, `
		insert into registrations (id, activity_id, volunteer_id, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ActivityID, r.VolunteerID, r.Status, r.CreatedAt, r.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: volunteer already registered", activity.ErrConflict)
		case pgErrForeignKeyViolation:
			return activity.ErrNotFound
		}
	}
	return err
}

func (s *Store) GetRegistration(ctx context.Context, id string) (*activity.Registration, error) {
	var r activity.Registration
	err := s.db.QueryRowContext(ctx, `
		select id, activity_id, volunteer_id, status, created_at, updated_at
		from registrations where id = $1
	`, id).Scan(&r.ID, &r.ActivityID, &r.VolunteerID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListRegistrationsByActivity(ctx context.Context, activityID string) ([]*activity.Registration, error) {
	return s.listRegistrations(ctx, `
		select id, activity_id, volunteer_id, status, created_at, updated_at
		from registrations where activity_id = $1 order by created_at asc
	`, activityID)
}

func (s *Store) ListRegistrationsByVolunteer(ctx context.Context, volunteerID string) ([]*activity.Registration, error) {
	return s.listRegistrations(ctx, `
		select id, activity_id, volunteer_id, status, created_at, updated_at
		from registrations where volunteer_id = $1 order by created_at asc
	`, volunteerID)
}

func (s *Store) listRegistrations(ctx context.Context, query string, args ...any) ([]*activity.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*activity.Registration
	for rows.Next() {
		var r activity.Registration
		if err := rows.Scan(&r.ID, &r.ActivityID, &r.VolunteerID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) CountActiveRegistrations(ctx context.Context, activityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from registrations
		where activity_id = $1 and status <> 'cancelled'
	`, activityID).Scan(&count)
	return count, err
}

func (s *Store) UpdateRegistrationStatus(ctx context.Context, id, status string) (*activity.Registration, error) {
	var r activity.Registration
	err := s.db.QueryRowContext(ctx, `
		update registrations set status = $2, updated_at = now()
		where id = $1
		returning id, activity_id, volunteer_id, status, created_at, updated_at
	`, id, status).Scan(&r.ID, &r.ActivityID, &r.VolunteerID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateReview(ctx context.Context, r *activity.Review) error {
	_, err := s.db.ExecContext(ctx, `
		insert into reviews (id, activity_id, volunteer_id, rating, comment, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.ActivityID, r.VolunteerID, r.Rating, r.Comment, r.Status, r.CreatedAt, r.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: review already submitted", activity.ErrConflict)
		case pgErrForeignKeyViolation:
			return activity.ErrNotFound
		}
	}
	return err
}

func (s *Store) GetReview(ctx context.Context, id string) (*activity.Review, error) {
	var r activity.Review
	err := s.db.QueryRowContext(ctx, `
		select id, activity_id, volunteer_id, rating, comment, status, created_at, updated_at
		from reviews where id = $1
	`, id).Scan(&r.ID, &r.ActivityID, &r.VolunteerID, &r.Rating, &r.Comment, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReviewsByActivity(ctx context.Context, activityID, status string) ([]*activity.Review, error) {
	return s.listReviews(ctx, `
		select id, activity_id, volunteer_id, rating, comment, status, created_at, updated_at
		from reviews
		where activity_id = $1 and ($2 = '' or status = $2)
		order by created_at asc
	`, activityID, status)
}

func (s *Store) ListReviewsByVolunteer(ctx context.Context, volunteerID string) ([]*activity.Review, error) {
	return s.listReviews(ctx, `
		select id, activity_id, volunteer_id, rating, comment, status, created_at, updated_at
		from reviews where volunteer_id = $1 order by created_at asc
	`, volunteerID)
}

func (s *Store) listReviews(ctx context.Context, query string, args ...any) ([]*activity.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*activity.Review
	for rows.Next() {
		var r activity.Review
		if err := rows.Scan(&r.ID, &r.ActivityID, &r.VolunteerID, &r.Rating, &r.Comment, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateReview(ctx context.Context, r *activity.Review) error {
	res, err := s.db.ExecContext(ctx, `
		update reviews set rating = $2, comment = $3, status = $4, updated_at = $5
		where id = $1
	`, r.ID, r.Rating, r.Comment, r.Status, r.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return activity.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from reviews where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return activity.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateReviewStatus(ctx context.Context, id, status string) (*activity.Review, error) {
	var r activity.Review
	err := s.db.QueryRowContext(ctx, `
		update reviews set status = $2, updated_at = now()
		where id = $1
		returning id, activity_id, volunteer_id, rating, comment, status, created_at, updated_at
	`, id, status).Scan(&r.ID, &r.ActivityID, &r.VolunteerID, &r.Rating, &r.Comment, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Counts(ctx context.Context) (activity.Stats, error) {
	var stats activity.Stats
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from activities),
			(select count(*) from registrations),
			(select count(*) from reviews)
	`).Scan(&stats.TotalActivities, &stats.TotalRegistrations, &stats.TotalReviews)
	return stats, err
}
