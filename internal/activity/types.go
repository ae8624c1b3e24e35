package activity

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("activity: not found")
	ErrInvalidInput  = errors.New("activity: invalid input")
	ErrConflict      = errors.New("activity: already exists")
	ErrCapacityFull  = errors.New("activity: capacity reached")
	ErrNotOwner      = errors.New("activity: not owned by caller")
	ErrClosedForPast = errors.New("activity: date is in the past")
)

// Registration statuses.
const (
	RegistrationPending   = "pending"
	RegistrationConfirmed = "confirmed"
	RegistrationCancelled = "cancelled"
)

// Review statuses.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Activity is a volunteering opportunity published by an NGO.
type Activity struct {
	ID          string    `json:"id"`
	NGOID       string    `json:"ngo_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Date        time.Time `json:"date"`
	Capacity    int       `json:"capacity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Registration links a volunteer to an activity.
type Registration struct {
	ID          string    `json:"id"`
	ActivityID  string    `json:"activity_id"`
	VolunteerID string    `json:"volunteer_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Review is a volunteer's rating of an activity; it only becomes public once
// approved.
type Review struct {
	ID          string    `json:"id"`
	ActivityID  string    `json:"activity_id"`
	VolunteerID string    `json:"volunteer_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows activity listings.
type Filter struct {
	Query    string
	Location string
	Limit    int
}

// Stats aggregates platform-wide counters for the admin dashboard.
type Stats struct {
	TotalActivities    int `json:"total_activities"`
	TotalRegistrations int `json:"total_registrations"`
	TotalReviews       int `json:"total_reviews"`
}

func validRegistrationStatus(status string) bool {
	switch status {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled:
		return true
	default:
		return false
	}
}

func validModerationStatus(status string) bool {
	switch status {
	case ReviewApproved, ReviewRejected:
		return true
	default:
		return false
	}
}
