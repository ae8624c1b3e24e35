// Package stream fan-outs table change notifications to subscribers
// (SSE/WebSocket clients and in-process watchers such as the maintenance
// checker). It replaces the managed backend's realtime channel.
package stream

import (
	"context"
	"sync"
	"time"
)

// Actions mirrored from row-level changes.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Tables that publish changes.
const (
	TableProfiles      = "profiles"
	TableActivities    = "activities"
	TableRegistrations = "registrations"
	TableReviews       = "reviews"
	TableSettings      = "system_settings"
)

// ChangeEvent describes a single row-level change.
type ChangeEvent struct {
	Table     string    `json:"table"`
	Action    string    `json:"action"`
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs change events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	ch    chan ChangeEvent
	table string // empty subscribes to every table
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for every table and returns a channel
// which will receive events. The channel is closed when the context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan ChangeEvent {
	return s.subscribe(ctx, "")
}

// SubscribeTable registers a subscriber for a single table's changes.
func (s *Stream) SubscribeTable(ctx context.Context, table string) <-chan ChangeEvent {
	return s.subscribe(ctx, table)
}

func (s *Stream) subscribe(ctx context.Context, table string) <-chan ChangeEvent {
	ch := make(chan ChangeEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{ch: ch, table: table}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all matching subscribers.
func (s *Stream) Publish(evt ChangeEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.table != "" && sub.table != evt.Table {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
