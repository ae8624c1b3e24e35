package activity

import "context"

// Store is the persistence surface for activities, registrations and reviews.
type Store interface {
	CreateActivity(ctx context.Context, a *Activity) error
	GetActivity(ctx context.Context, id string) (*Activity, error)
	ListActivities(ctx context.Context, f Filter) ([]*Activity, error)

	CreateRegistration(ctx context.Context, r *Registration) error
	GetRegistration(ctx context.Context, id string) (*Registration, error)
	ListRegistrationsByActivity(ctx context.Context, activityID string) ([]*Registration, error)
	ListRegistrationsByVolunteer(ctx context.Context, volunteerID string) ([]*Registration, error)
	CountActiveRegistrations(ctx context.Context, activityID string) (int, error)
	UpdateRegistrationStatus(ctx context.Context, id, status string) (*Registration, error)

	CreateReview(ctx context.Context, r *Review) error
	GetReview(ctx context.Context, id string) (*Review, error)
	ListReviewsByActivity(ctx context.Context, activityID, status string) ([]*Review, error)
	ListReviewsByVolunteer(ctx context.Context, volunteerID string) ([]*Review, error)
	UpdateReview(ctx context.Context, r *Review) error
	UpdateReviewStatus(ctx context.Context, id, status string) (*Review, error)
	DeleteReview(ctx context.Context, id string) error

	Counts(ctx context.Context) (Stats, error)
}
