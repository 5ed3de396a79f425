// Package session persists per-session conversation state in an opaque
// key-value store keyed by session handle. Only the minimal serialized
// state is stored; scenario definitions are always re-resolved from the
// scenario store by identifier.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/metrics"
)

// ErrSessionNotFound indicates no state is stored for the session handle.
var ErrSessionNotFound = errors.New("session not found")

// Store reads and writes conversation state atomically per session.
type Store interface {
	Get(ctx context.Context, sessionID string) (*model.ConversationState, error)
	Put(ctx context.Context, sessionID string, state *model.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.ConversationState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.ConversationState)}
}

// Get returns a copy of the stored state.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := state
	copied.Variables = make(map[string]any, len(state.Variables))
	for k, v := range state.Variables {
		copied.Variables[k] = v
	}
	return &copied, nil
}

// Put stores a copy of the state.
func (s *MemoryStore) Put(ctx context.Context, sessionID string, state *model.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		metrics.SessionsActive.Inc()
	}
	copied := *state
	copied.Variables = make(map[string]any, len(state.Variables))
	for k, v := range state.Variables {
		copied.Variables[k] = v
	}
	s.sessions[sessionID] = copied
	return nil
}

// Delete removes the session's state.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; ok {
		metrics.SessionsActive.Dec()
		delete(s.sessions, sessionID)
	}
	return nil
}
