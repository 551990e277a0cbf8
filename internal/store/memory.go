// internal/store/memory.go
//
// In-memory implementation of the match Store.
// Matches only live as long as the process; nothing is written to disk.
//
// Characteristics:
//   - Stores *play.Match objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Sweep closes and forgets matches idle since before a cutoff.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/digitspan/internal/play"
)

var ErrNotFound = errors.New("store: match not found")

// Store defines the lifecycle operations for live matches.
type Store interface {
	// Save adds or replaces a match.
	Save(ctx context.Context, m *play.Match) error

	// Get retrieves a match by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*play.Match, error)

	// Delete closes and removes a match, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes matches whose last activity is before cutoff.
	// It returns the removed IDs.
	Sweep(ctx context.Context, cutoff time.Time) ([]string, error)

	// Len reports how many matches are live.
	Len() int

	// Close closes every match.
	Close() error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex           // guards matches
	matches map[string]*play.Match // keyed by Match.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{matches: make(map[string]*play.Match)}
}

func (m *memory) Save(ctx context.Context, match *play.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[match.ID] = match
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*play.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if match, ok := m.matches[id]; ok {
		return match, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	match, ok := m.matches[id]
	delete(m.matches, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	match.Close()
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	var stale []*play.Match
	for id, match := range m.matches {
		if match.LastActivity().Before(cutoff) {
			stale = append(stale, match)
			delete(m.matches, id)
		}
	}
	m.mu.Unlock()

	// Close outside the lock: it waits for timed tasks.
	ids := make([]string, 0, len(stale))
	for _, match := range stale {
		match.Close()
		ids = append(ids, match.ID)
	}
	return ids, ctx.Err()
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

func (m *memory) Close() error {
	m.mu.Lock()
	all := m.matches
	m.matches = make(map[string]*play.Match)
	m.mu.Unlock()
	for _, match := range all {
		match.Close()
	}
	return nil
}
