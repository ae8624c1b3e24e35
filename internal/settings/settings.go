// Package settings manages the singleton system settings row, most notably
// the maintenance-mode switch that takes the public API surface offline.
package settings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"volunteerhub.org/internal/obs"
	"volunteerhub.org/internal/stream"
)

// Settings is the singleton configuration row.
type Settings struct {
	MaintenanceMode    bool       `json:"maintenance_mode"`
	MaintenanceMessage string     `json:"maintenance_message,omitempty"`
	MaintenanceUntil   *time.Time `json:"maintenance_until,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Store persists the singleton row.
type Store interface {
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, s Settings) (Settings, error)
}

// Service wraps the store and publishes every change on the stream so
// watchers and realtime clients react without polling.
type Service struct {
	store   Store
	changes *stream.Stream
}

// NewService constructs a Service. changes may be nil.
func NewService(store Store, changes *stream.Stream) (*Service, error) {
	if store == nil {
		return nil, errors.New("settings store is required")
	}
	return &Service{store: store, changes: changes}, nil
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	return s.store.GetSettings(ctx)
}

// Update replaces the settings row and notifies subscribers.
func (s *Service) Update(ctx context.Context, next Settings) (Settings, error) {
	next.MaintenanceMessage = strings.TrimSpace(next.MaintenanceMessage)
	next.UpdatedAt = time.Now().UTC()
	updated, err := s.store.UpdateSettings(ctx, next)
	if err != nil {
		return Settings{}, err
	}
	if s.changes != nil {
		s.changes.Publish(stream.ChangeEvent{
			Table:    stream.TableSettings,
			Action:   stream.ActionUpdate,
			RecordID: "singleton",
		})
	}
	return updated, nil
}

// Watcher keeps a cached copy of the settings, refreshed on every change
// event. A failed refresh keeps the last known value; a failed initial check
// defaults to "not in maintenance" rather than locking everyone out.
type Watcher struct {
	service *Service

	mu      sync.RWMutex
	current Settings
}

// NewWatcher builds a watcher around the service.
func NewWatcher(service *Service) *Watcher {
	return &Watcher{service: service}
}

// Current returns the cached settings snapshot.
func (w *Watcher) Current() Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Refresh re-reads the settings row once.
func (w *Watcher) Refresh(ctx context.Context) {
	s, err := w.service.Get(ctx)
	if err != nil {
		obs.LogError("maintenance check failed", map[string]any{"error": err.Error()})
		return
	}
	w.mu.Lock()
	w.current = s
	w.mu.Unlock()
}

// Run performs the initial check and then refreshes on every settings change
// until the context ends.
func (w *Watcher) Run(ctx context.Context, changes *stream.Stream) {
	w.Refresh(ctx)
	if changes == nil {
		return
	}
	ch := changes.SubscribeTable(ctx, stream.TableSettings)
	go func() {
		for range ch {
			w.Refresh(ctx)
		}
	}()
}

// InMaintenance reports whether maintenance mode is active right now. A
// maintenance window with a past "until" timestamp is treated as over.
func (w *Watcher) InMaintenance(now time.Time) bool {
	s := w.Current()
	if !s.MaintenanceMode {
		return false
	}
	if s.MaintenanceUntil != nil && now.After(*s.MaintenanceUntil) {
		return false
	}
	return true
}
