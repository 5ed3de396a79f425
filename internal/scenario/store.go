// Package scenario loads immutable conversation scenario definitions.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
)

var (
	// ErrNotFound indicates no definition exists for the identifier.
	ErrNotFound = errors.New("scenario not found")
	// ErrMalformed indicates a definition is missing required fields.
	ErrMalformed = errors.New("malformed scenario")
)

// Store loads scenario definitions by identifier. Loads are idempotent and
// side-effect free; definitions are re-read on every call rather than
// cached, since only the session's minimal state is ever persisted.
type Store struct {
	fsys fs.FS
}

// NewStore creates a store over a directory of <id>.json definitions.
func NewStore(dir string) *Store {
	return &Store{fsys: os.DirFS(dir)}
}

// NewStoreFS creates a store over an arbitrary filesystem.
func NewStoreFS(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Load reads and validates the scenario with the given identifier.
func (s *Store) Load(id string) (*model.Scenario, error) {
	data, err := fs.ReadFile(s.fsys, id+".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read scenario %q: %w", id, err)
	}

	// Decode twice: once into the typed scenario, once raw to detect
	// required fields that are absent rather than zero-valued.
	var scn model.Scenario
	if err := json.Unmarshal(data, &scn); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, id, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, id, err)
	}
	for _, field := range []string{"scenario_id", "scenario_name", "teacher_persona", "conversation_events", "variables"} {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("%w: %q: missing field %q", ErrMalformed, id, field)
		}
	}

	return &scn, nil
}

// ValidateSequence checks the soft invariant that declared event ids match
// their positions 0..N-1. A mismatch is reported, not enforced; callers
// log it and continue.
func ValidateSequence(scn *model.Scenario) error {
	for i, ev := range scn.Events {
		if ev.EventID != i {
			return fmt.Errorf("event id mismatch: expected %d, got %d", i, ev.EventID)
		}
	}
	return nil
}
