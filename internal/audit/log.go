package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/ids"
	"volunteerhub.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Entry is an append-only record of an administrative or security-relevant
// action, persisted for the admin dashboard.
type Entry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id,omitempty"`
	TargetID  string         `json:"target_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store appends and lists immutable entries.
type Store interface {
	AppendAudit(ctx context.Context, entry *Entry) error
	ListAudit(ctx context.Context, limit int) ([]*Entry, error)
}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// requestIDFromContext extracts the audit request id from context if present.
func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log line enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		entry["user_id"] = principal.UserID
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

// Recorder couples the JSON audit line with a persisted entry.
type Recorder struct {
	store Store
}

// NewRecorder builds a Recorder; store may be nil for log-only auditing.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record logs the event and, when a store is configured, appends the entry.
func (r *Recorder) Record(ctx context.Context, action, targetID string, details map[string]any) error {
	if err := LogEvent(ctx, action, details); err != nil {
		return err
	}
	if r == nil || r.store == nil {
		return nil
	}
	entry := &Entry{
		ID:        ids.New(),
		Action:    action,
		TargetID:  targetID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		entry.ActorID = principal.UserID
	}
	return r.store.AppendAudit(ctx, entry)
}

// Recent returns the newest entries, capped by limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return r.store.ListAudit(ctx, limit)
}
