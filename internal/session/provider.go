// Package session owns client-side authentication state: who is signed in,
// what their profile says, and whether a protected surface may be entered.
// It is the counterpart of the server's auth service, consumed by the Go API
// client and by anything else that needs role-gated access decisions.
package session

import (
	"context"
	"errors"
	"sync"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/obs"
)

// EventType classifies backend auth-state changes.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is a backend-pushed auth-state change.
type Event struct {
	Type    EventType
	Session *auth.Session
}

// Backend is the authentication backend contract the provider consumes.
// SignIn and SignOut must surface their outcome through OnAuthStateChange;
// the provider never duplicates the session→profile resolution after SignIn.
type Backend interface {
	CurrentSession(ctx context.Context) (*auth.Session, error)
	OnAuthStateChange(fn func(Event)) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context) error
}

// ProfileRepository fetches the profile row matching a session's user.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*auth.Profile, error)
}

// State is a snapshot of the provider's authentication state. Consumers are
// read-only; all mutation funnels through the provider.
type State struct {
	Session *auth.Session
	Profile *auth.Profile
	Loading bool

	// ProfileMissing marks the terminal case where the backend definitively
	// reported no profile row for an existing session, as opposed to a fetch
	// that is still pending or failed transiently.
	ProfileMissing bool
}

// Provider is the single source of truth for "who is logged in and what is
// their role". One instance per process; every mutation happens under its
// lock, and profile fetches carry a generation token so a stale fetch can
// never overwrite the result of a newer auth event.
type Provider struct {
	backend  Backend
	profiles ProfileRepository

	mu        sync.Mutex
	state     State
	gen       uint64
	listeners map[int]func(State)
	nextID    int

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	closed      bool
}

// NewProvider wires a provider to its backend and profile repository. The
// provider starts in the loading state until Initialize completes.
func NewProvider(backend Backend, profiles ProfileRepository) *Provider {
	ctx, cancel := context.WithCancel(context.Background())
	return &Provider{
		backend:   backend,
		profiles:  profiles,
		state:     State{Loading: true},
		listeners: make(map[int]func(State)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Initialize restores an existing session, fetches its profile and subscribes
// to backend auth-state changes. A session-check error is treated as "no
// session"; a profile-fetch error leaves the profile nil. Neither is fatal:
// loading always settles.
func (p *Provider) Initialize(ctx context.Context) {
	sess, err := p.backend.CurrentSession(ctx)
	if err != nil {
		obs.LogError("session check failed", map[string]any{"error": err.Error()})
		sess = nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.unsubscribe == nil {
		p.unsubscribe = p.backend.OnAuthStateChange(p.handleEvent)
	}
	p.mu.Unlock()

	evType := EventSignedOut
	if sess != nil {
		evType = EventSignedIn
	}
	p.handleEvent(Event{Type: evType, Session: sess})
}

// Subscribe registers a listener for state snapshots. The listener is invoked
// immediately with the current state and again after every change. The
// returned function removes the listener.
func (p *Provider) Subscribe(listener func(State)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	snap := p.state
	p.mu.Unlock()

	listener(snap)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// State returns the current snapshot.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SignIn delegates to the backend. On success the backend's auth-state event
// repopulates session and profile; on failure the typed error propagates to
// the caller for display.
func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	_, err := p.backend.SignIn(ctx, email, password)
	return err
}

// SignOut delegates to the backend and eagerly clears local state so
// dependent consumers react immediately instead of waiting for the
// subscription callback.
func (p *Provider) SignOut(ctx context.Context) error {
	err := p.backend.SignOut(ctx)

	p.mu.Lock()
	p.gen++ // invalidate any in-flight profile fetch
	p.state = State{}
	snap := p.state
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	notify(listeners, snap)
	return err
}

// Close tears down the backend subscription and stops applying in-flight
// fetch results. Safe to call more than once.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	unsub := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	p.cancel()
	if unsub != nil {
		unsub()
	}
}

// handleEvent applies a backend auth-state change: store the session, then
// resolve the matching profile. Last event wins — each event bumps the
// generation and a profile fetch only lands if its generation is still
// current when it resolves.
func (p *Provider) handleEvent(ev Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.gen++
	gen := p.gen
	p.state.Session = ev.Session
	p.state.ProfileMissing = false

	if ev.Session == nil {
		p.state.Profile = nil
		p.state.Loading = false
		snap := p.state
		listeners := p.snapshotListeners()
		p.mu.Unlock()
		notify(listeners, snap)
		return
	}

	p.state.Loading = true
	userID := ev.Session.UserID
	snap := p.state
	listeners := p.snapshotListeners()
	p.mu.Unlock()
	notify(listeners, snap)

	go p.resolveProfile(userID, gen)
}

func (p *Provider) resolveProfile(userID string, gen uint64) {
	profile, err := p.profiles.GetProfile(p.ctx, userID)

	p.mu.Lock()
	if p.closed || gen != p.gen {
		// A newer auth event superseded this fetch; discard the late result.
		p.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		p.state.Profile = profile
	case errors.Is(err, auth.ErrNotFound):
		p.state.Profile = nil
		p.state.ProfileMissing = true
	default:
		obs.LogError("profile fetch failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		p.state.Profile = nil
	}
	p.state.Loading = false
	snap := p.state
	listeners := p.snapshotListeners()
	p.mu.Unlock()
	notify(listeners, snap)
}

// snapshotListeners must be called with the lock held.
func (p *Provider) snapshotListeners() []func(State) {
	out := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(State), snap State) {
	for _, fn := range listeners {
		fn(snap)
	}
}
