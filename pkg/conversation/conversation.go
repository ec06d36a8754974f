package conversation

import (
	"context"
	"sync"
)

// CreateFunc creates a conversation on the server and returns its id.
// The transport layer supplies the implementation.
type CreateFunc func(ctx context.Context) (string, error)

// State tracks the server-side conversation id and the parent turn pointer
// used to thread multi-turn exchanges. One State belongs to one client
// instance; at most one chat turn may be in flight per State, because the
// decoder mutates the parent pointer the next request reads. The internal
// mutex only keeps individual reads and writes consistent.
type State struct {
	mu       sync.Mutex
	id       string
	parentID *string
}

// New returns an empty conversation state ("not yet created", first turn)
func New() *State {
	return &State{}
}

// ID returns the conversation id, empty when not yet created
func (s *State) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// ParentID returns the parent turn pointer, nil meaning "first turn"
func (s *State) ParentID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parentID
}

// EnsureConversation returns the existing conversation id, or calls createFn
// to lazily create one. On failure the state stays unset so the next call can
// retry creation.
func (s *State) EnsureConversation(ctx context.Context, createFn CreateFunc) (string, error) {
	s.mu.Lock()
	if s.id != "" {
		id := s.id
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	id, err := createFn(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return id, nil
}

// AdvanceParent overwrites the parent pointer. Called by the stream decoder
// when the server acknowledges a turn boundary.
func (s *State) AdvanceParent(newParentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parentID = &newParentID
}

// Reset clears both the conversation id and the parent pointer. Never fails.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.parentID = nil
}
