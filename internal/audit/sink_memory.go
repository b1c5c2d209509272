package audit

import (
	"context"
	"sync"

	id "bucketlist/pkg/domain"
)

// MemorySink retains events in memory, indexed by user.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// ListByUser returns the events recorded for userID in arrival order.
func (s *MemorySink) ListByUser(userID id.UserID) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// Actions returns every recorded action in arrival order.
func (s *MemorySink) Actions() []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Action, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

// MultiSink fans events out to every sink, returning the first error.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, events []Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.Write(ctx, events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
