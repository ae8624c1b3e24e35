// Package memory provides an in-process store used by tests and by dev mode
// when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/settings"
)

// Store keeps everything in maps guarded by a single mutex.
type Store struct {
	mu            sync.RWMutex
	profiles      map[string]*auth.Profile
	credentials   map[string]*auth.Credential // keyed by user id
	emails        map[string]string           // email -> user id
	activities    map[string]*activity.Activity
	registrations map[string]*activity.Registration
	reviews       map[string]*activity.Review
	auditEntries  []*audit.Entry
	settings      settings.Settings
}

var (
	_ auth.Store     = (*Store)(nil)
	_ activity.Store = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
	_ audit.Store    = (*Store)(nil)
)

// New initialises an empty store.
func New() *Store {
	return &Store{
		profiles:      make(map[string]*auth.Profile),
		credentials:   make(map[string]*auth.Credential),
		emails:        make(map[string]string),
		activities:    make(map[string]*activity.Activity),
		registrations: make(map[string]*activity.Registration),
		reviews:       make(map[string]*activity.Review),
	}
}

// --- auth.Store ---

func (s *Store) CreateProfile(ctx context.Context, p *auth.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return auth.ErrConflict
	}
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*auth.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]*auth.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateProfileName(ctx context.Context, userID, name string) (*auth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	p.Name = name
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProfileRole(ctx context.Context, userID string, role auth.Role) (*auth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProfileVerification(ctx context.Context, userID, status string, verifiedAt *time.Time, notes string) (*auth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	p.VerificationStatus = status
	p.VerifiedAt = verifiedAt
	p.VerificationNotes = notes
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *Store) CreateCredential(ctx context.Context, c *auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(c.Email)
	if _, ok := s.emails[email]; ok {
		return auth.ErrConflict
	}
	cp := *c
	s.credentials[c.UserID] = &cp
	s.emails[email] = c.UserID
	return nil
}

func (s *Store) FindCredentialByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s.credentials[userID]
	return &cp, nil
}

func (s *Store) FindCredential(ctx context.Context, userID string) (*auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// --- activity.Store ---

func (s *Store) CreateActivity(ctx context.Context, a *activity.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; ok {
		return activity.ErrConflict
	}
	cp := *a
	s.activities[a.ID] = &cp
	return nil
}

func (s *Store) GetActivity(ctx context.Context, id string) (*activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListActivities(ctx context.Context, f activity.Filter) ([]*activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := strings.ToLower(f.Query)
	location := strings.ToLower(f.Location)
	var out []*activity.Activity
	for _, a := range s.activities {
		if query != "" &&
			!strings.Contains(strings.ToLower(a.Title), query) &&
			!strings.Contains(strings.ToLower(a.Description), query) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(a.Location), location) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateRegistration(ctx context.Context, r *activity.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.registrations {
		if existing.ActivityID == r.ActivityID && existing.VolunteerID == r.VolunteerID &&
			existing.Status != activity.RegistrationCancelled {
			return fmt.Errorf("%w: volunteer already registered", activity.ErrConflict)
		}
	}
	cp := *r
	s.registrations[r.ID] = &cp
	return nil
}

func (s *Store) GetRegistration(ctx context.Context, id string) (*activity.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRegistrationsByActivity(ctx context.Context, activityID string) ([]*activity.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*activity.Registration
	for _, r := range s.registrations {
		if r.ActivityID == activityID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortRegistrations(out)
	return out, nil
}

func (s *Store) ListRegistrationsByVolunteer(ctx context.Context, volunteerID string) ([]*activity.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*activity.Registration
	for _, r := range s.registrations {
		if r.VolunteerID == volunteerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortRegistrations(out)
	return out, nil
}

func (s *Store) CountActiveRegistrations(ctx context.Context, activityID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.registrations {
		if r.ActivityID == activityID && r.Status != activity.RegistrationCancelled {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateRegistrationStatus(ctx context.Context, id, status string) (*activity.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, nil
}

func (s *Store) CreateReview(ctx context.Context, r *activity.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.ActivityID == r.ActivityID && existing.VolunteerID == r.VolunteerID {
			return fmt.Errorf("%w: review already submitted", activity.ErrConflict)
		}
	}
	cp := *r
	s.reviews[r.ID] = &cp
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (*activity.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListReviewsByActivity(ctx context.Context, activityID, status string) ([]*activity.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*activity.Review
	for _, r := range s.reviews {
		if r.ActivityID != activityID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sortReviews(out)
	return out, nil
}

func (s *Store) ListReviewsByVolunteer(ctx context.Context, volunteerID string) ([]*activity.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*activity.Review
	for _, r := range s.reviews {
		if r.VolunteerID == volunteerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortReviews(out)
	return out, nil
}

func (s *Store) UpdateReview(ctx context.Context, r *activity.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[r.ID]; !ok {
		return activity.ErrNotFound
	}
	cp := *r
	s.reviews[r.ID] = &cp
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return activity.ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) UpdateReviewStatus(ctx context.Context, id, status string) (*activity.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, nil
}

func (s *Store) Counts(ctx context.Context) (activity.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activity.Stats{
		TotalActivities:    len(s.activities),
		TotalRegistrations: len(s.registrations),
		TotalReviews:       len(s.reviews),
	}, nil
}

// --- settings.Store ---

func (s *Store) GetSettings(ctx context.Context) (settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, next settings.Settings) (settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = next
	return s.settings, nil
}

// --- audit.Store ---

func (s *Store) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.auditEntries = append(s.auditEntries, &cp)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*audit.Entry, 0, limit)
	for i := len(s.auditEntries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.auditEntries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func sortRegistrations(regs []*activity.Registration) {
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })
}

func sortReviews(reviews []*activity.Review) {
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.Before(reviews[j].CreatedAt) })
}
