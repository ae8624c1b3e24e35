package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"volunteerhub.org/internal/ids"
	"volunteerhub.org/internal/stream"
)

const maxListLimit = 200

// Service wraps the store with validation, capacity enforcement and change
// publication.
type Service struct {
	store   Store
	changes *stream.Stream
	now     func() time.Time
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

// NewService constructs a Service. changes may be nil when no realtime
// notification is wanted.
func NewService(store Store, changes *stream.Stream, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("activity store is required")
	}
	svc := &Service{store: store, changes: changes, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) publish(table, action, recordID string) {
	if s.changes == nil {
		return
	}
	s.changes.Publish(stream.ChangeEvent{Table: table, Action: action, RecordID: recordID})
}

// Create publishes a new activity owned by the given NGO.
func (s *Service) Create(ctx context.Context, ngoID, title, description, location string, date time.Time, capacity int) (*Activity, error) {
	ngoID = strings.TrimSpace(ngoID)
	title = strings.TrimSpace(title)
	if ngoID == "" || title == "" {
		return nil, fmt.Errorf("%w: ngo_id and title are required", ErrInvalidInput)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}
	if date.Before(s.now()) {
		return nil, ErrClosedForPast
	}

	now := s.now().UTC()
	a := &Activity{
		ID:          ids.New(),
		NGOID:       ngoID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Location:    strings.TrimSpace(location),
		Date:        date.UTC(),
		Capacity:    capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateActivity(ctx, a); err != nil {
		return nil, err
	}
	s.publish(stream.TableActivities, stream.ActionInsert, a.ID)
	return a, nil
}

// Get fetches one activity.
func (s *Service) Get(ctx context.Context, id string) (*Activity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: activity id is required", ErrInvalidInput)
	}
	return s.store.GetActivity(ctx, id)
}

// List returns activities matching the filter, capped at maxListLimit.
func (s *Service) List(ctx context.Context, f Filter) ([]*Activity, error) {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	f.Query = strings.TrimSpace(f.Query)
	f.Location = strings.TrimSpace(f.Location)
	return s.store.ListActivities(ctx, f)
}

// Register signs a volunteer up for an activity. One registration per
// activity+volunteer; capacity counts pending and confirmed registrations.
func (s *Service) Register(ctx context.Context, activityID, volunteerID string) (*Registration, error) {
	activityID = strings.TrimSpace(activityID)
	volunteerID = strings.TrimSpace(volunteerID)
	if activityID == "" || volunteerID == "" {
		return nil, fmt.Errorf("%w: activity_id and volunteer_id are required", ErrInvalidInput)
	}
	act, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountActiveRegistrations(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if active >= act.Capacity {
		return nil, ErrCapacityFull
	}

	now := s.now().UTC()
	reg := &Registration{
		ID:          ids.New(),
		ActivityID:  activityID,
		VolunteerID: volunteerID,
		Status:      RegistrationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}
	s.publish(stream.TableRegistrations, stream.ActionInsert, reg.ID)
	return reg, nil
}

// RegistrationsForActivity lists an activity's registrations for its owner.
func (s *Service) RegistrationsForActivity(ctx context.Context, activityID string) ([]*Registration, error) {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" {
		return nil, fmt.Errorf("%w: activity_id is required", ErrInvalidInput)
	}
	return s.store.ListRegistrationsByActivity(ctx, activityID)
}

// RegistrationsForVolunteer lists a volunteer's own history.
func (s *Service) RegistrationsForVolunteer(ctx context.Context, volunteerID string) ([]*Registration, error) {
	volunteerID = strings.TrimSpace(volunteerID)
	if volunteerID == "" {
		return nil, fmt.Errorf("%w: volunteer_id is required", ErrInvalidInput)
	}
	return s.store.ListRegistrationsByVolunteer(ctx, volunteerID)
}

// SetRegistrationStatus moves a registration to a new status.
func (s *Service) SetRegistrationStatus(ctx context.Context, id, status string) (*Registration, error) {
	id = strings.TrimSpace(id)
	status = strings.ToLower(strings.TrimSpace(status))
	if id == "" {
		return nil, fmt.Errorf("%w: registration id is required", ErrInvalidInput)
	}
	if !validRegistrationStatus(status) {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
	}
	reg, err := s.store.UpdateRegistrationStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.publish(stream.TableRegistrations, stream.ActionUpdate, reg.ID)
	return reg, nil
}

// Registration fetches one registration.
func (s *Service) Registration(ctx context.Context, id string) (*Registration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: registration id is required", ErrInvalidInput)
	}
	return s.store.GetRegistration(ctx, id)
}

// SubmitReview records a volunteer's rating; it starts pending and is
// invisible publicly until approved.
func (s *Service) SubmitReview(ctx context.Context, activityID, volunteerID string, rating int, comment string) (*Review, error) {
	activityID = strings.TrimSpace(activityID)
	volunteerID = strings.TrimSpace(volunteerID)
	if activityID == "" || volunteerID == "" {
		return nil, fmt.Errorf("%w: activity_id and volunteer_id are required", ErrInvalidInput)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if _, err := s.store.GetActivity(ctx, activityID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	review := &Review{
		ID:          ids.New(),
		ActivityID:  activityID,
		VolunteerID: volunteerID,
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		Status:      ReviewPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	s.publish(stream.TableReviews, stream.ActionInsert, review.ID)
	return review, nil
}

// ApprovedReviews lists the public reviews of an activity.
func (s *Service) ApprovedReviews(ctx context.Context, activityID string) ([]*Review, error) {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" {
		return nil, fmt.Errorf("%w: activity_id is required", ErrInvalidInput)
	}
	return s.store.ListReviewsByActivity(ctx, activityID, ReviewApproved)
}

// PendingReviews lists reviews awaiting moderation for an activity.
func (s *Service) PendingReviews(ctx context.Context, activityID string) ([]*Review, error) {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" {
		return nil, fmt.Errorf("%w: activity_id is required", ErrInvalidInput)
	}
	return s.store.ListReviewsByActivity(ctx, activityID, ReviewPending)
}

// ReviewsForVolunteer lists a volunteer's own reviews regardless of status.
func (s *Service) ReviewsForVolunteer(ctx context.Context, volunteerID string) ([]*Review, error) {
	volunteerID = strings.TrimSpace(volunteerID)
	if volunteerID == "" {
		return nil, fmt.Errorf("%w: volunteer_id is required", ErrInvalidInput)
	}
	return s.store.ListReviewsByVolunteer(ctx, volunteerID)
}

// ModerateReview approves or rejects a pending review.
func (s *Service) ModerateReview(ctx context.Context, id, status string) (*Review, error) {
	id = strings.TrimSpace(id)
	status = strings.ToLower(strings.TrimSpace(status))
	if id == "" {
		return nil, fmt.Errorf("%w: review id is required", ErrInvalidInput)
	}
	if !validModerationStatus(status) {
		return nil, fmt.Errorf("%w: status must be approved or rejected", ErrInvalidInput)
	}
	review, err := s.store.UpdateReviewStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.publish(stream.TableReviews, stream.ActionUpdate, review.ID)
	return review, nil
}

// UpdateReview lets the submitting volunteer revise their review. Any edit
// sends the review back to moderation, so an approved review leaves the
// public listing until it is approved again.
func (s *Service) UpdateReview(ctx context.Context, id, volunteerID string, rating int, comment string) (*Review, error) {
	id = strings.TrimSpace(id)
	volunteerID = strings.TrimSpace(volunteerID)
	if id == "" || volunteerID == "" {
		return nil, fmt.Errorf("%w: review id and volunteer_id are required", ErrInvalidInput)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.VolunteerID != volunteerID {
		return nil, ErrNotOwner
	}
	review.Rating = rating
	review.Comment = strings.TrimSpace(comment)
	review.Status = ReviewPending
	review.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateReview(ctx, review); err != nil {
		return nil, err
	}
	s.publish(stream.TableReviews, stream.ActionUpdate, review.ID)
	return review, nil
}

// DeleteReview removes the volunteer's own review.
func (s *Service) DeleteReview(ctx context.Context, id, volunteerID string) error {
	id = strings.TrimSpace(id)
	volunteerID = strings.TrimSpace(volunteerID)
	if id == "" || volunteerID == "" {
		return fmt.Errorf("%w: review id and volunteer_id are required", ErrInvalidInput)
	}
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if review.VolunteerID != volunteerID {
		return ErrNotOwner
	}
	if err := s.store.DeleteReview(ctx, id); err != nil {
		return err
	}
	s.publish(stream.TableReviews, stream.ActionDelete, id)
	return nil
}

// Review fetches one review.
func (s *Service) Review(ctx context.Context, id string) (*Review, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: review id is required", ErrInvalidInput)
	}
	return s.store.GetReview(ctx, id)
}

// Stats aggregates platform counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Counts(ctx)
}
