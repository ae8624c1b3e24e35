// Package remote adapts the HTTP API into the session.Backend and
// session.ProfileRepository contracts, so CLI tools and smoke checks drive the
// same provider/gate flow a browser client would.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/session"
)

const defaultTimeout = 10 * time.Second

// Client talks to the HTTP API and holds the current session in memory. It
// implements session.Backend and session.ProfileRepository.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	session   *auth.Session
	listeners map[int]func(session.Event)
	nextID    int
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for the given API base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		listeners: make(map[int]func(session.Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	UserID  string        `json:"user_id"`
	Email   string        `json:"email"`
	Role    string        `json:"role"`
	Profile *auth.Profile `json:"profile"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CurrentSession returns the held session, or nil once it has expired.
func (c *Client) CurrentSession(ctx context.Context) (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Expired(time.Now()) {
		c.session = nil
		return nil, nil
	}
	s := *c.session
	return &s, nil
}

// OnAuthStateChange registers a listener for sign-in/sign-out events.
func (c *Client) OnAuthStateChange(fn func(session.Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SignIn exchanges credentials for a token and announces the new session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	var payload tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/token", map[string]string{
		"email":    email,
		"password": password,
	}, "", &payload)
	if err != nil {
		return nil, err
	}

	sess := &auth.Session{
		UserID:    payload.UserID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Token:     payload.Token,
		ExpiresAt: payload.ExpiresAt,
	}

	c.mu.Lock()
	c.session = sess
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	copySess := *sess
	emit(listeners, session.Event{Type: session.EventSignedIn, Session: &copySess})
	return sess, nil
}

// SignOut invalidates the held session. The server call is best-effort; local
// state clears regardless so the caller is signed out either way.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.Token
	}
	c.session = nil
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	var err error
	if token != "" {
		err = c.doJSON(ctx, http.MethodPost, "/v1/auth/signout", nil, token, nil)
	}
	emit(listeners, session.Event{Type: session.EventSignedOut, Session: nil})
	return err
}

// GetProfile resolves the signed-in user's profile row. A session whose
// profile row is gone yields auth.ErrNotFound, which the provider treats as
// the terminal missing-profile state.
func (c *Client) GetProfile(ctx context.Context, userID string) (*auth.Profile, error) {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.Token
	}
	c.mu.Unlock()
	if token == "" {
		return nil, auth.ErrUnauthorized
	}

	var payload meResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/me", nil, token, &payload); err != nil {
		return nil, err
	}
	if payload.Profile == nil {
		return nil, auth.ErrNotFound
	}
	return payload.Profile, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapAPIError(resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", auth.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", auth.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", auth.ErrConflict, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", auth.ErrInvalidInput, msg)
	default:
		return fmt.Errorf("api error: %d %s", resp.StatusCode, msg)
	}
}

// snapshotListeners must be called with the lock held.
func (c *Client) snapshotListeners() []func(session.Event) {
	out := make([]func(session.Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func emit(listeners []func(session.Event), ev session.Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
