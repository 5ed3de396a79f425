package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
)

// NATSStore persists conversation state in a JetStream key-value bucket.
// Reads and writes are whole-value, so each session's state is replaced
// atomically per turn.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore creates a store over the given bucket.
func NewNATSStore(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// Get reads the serialized state for the session handle.
func (s *NATSStore) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	entry, err := s.kv.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session %q: %w", sessionID, err)
	}

	var state model.ConversationState
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", sessionID, err)
	}
	if state.Variables == nil {
		state.Variables = make(map[string]any)
	}
	return &state, nil
}

// Put writes the serialized state for the session handle.
func (s *NATSStore) Put(ctx context.Context, sessionID string, state *model.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", sessionID, err)
	}
	if _, err := s.kv.Put(ctx, sessionID, data); err != nil {
		return fmt.Errorf("put session %q: %w", sessionID, err)
	}
	return nil
}

// Delete removes the session's state.
func (s *NATSStore) Delete(ctx context.Context, sessionID string) error {
	err := s.kv.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete session %q: %w", sessionID, err)
	}
	return nil
}
