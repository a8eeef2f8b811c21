// Package checkpointing persists per-tick snapshots of run state, enabling
// post-mortem inspection of a run's trajectory and durable audit trails for
// long research loops.
//
// Storage backends:
//   - InMemoryStorage: fast, test-friendly, lost on restart
//   - FileStorage: one JSON file per tick under a per-run directory
//   - RedisStorage: shared storage for multi-instance deployments
//
// Any Storage satisfies flow.Checkpointer and can be wired into an engine
// with flow.WithCheckpointer.
package checkpointing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rivalscan/rivalscan/flow"
)

// Storage persists and retrieves run snapshots.
type Storage interface {
	// Save stores one snapshot. Called by the engine after every tick.
	Save(ctx context.Context, snap flow.Snapshot) error

	// Load returns all snapshots for a run, ordered by tick.
	Load(ctx context.Context, runID string) ([]flow.Snapshot, error)

	// Latest returns the most recent snapshot for a run, or nil if the run
	// has none.
	Latest(ctx context.Context, runID string) (*flow.Snapshot, error)

	// Delete removes all snapshots for a run.
	Delete(ctx context.Context, runID string) error
}

// InMemoryStorage keeps snapshots in process memory.
type InMemoryStorage struct {
	mu   sync.RWMutex
	runs map[string][]flow.Snapshot
}

var _ Storage = (*InMemoryStorage)(nil)
var _ flow.Checkpointer = (*InMemoryStorage)(nil)

// NewInMemoryStorage creates an empty in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{runs: make(map[string][]flow.Snapshot)}
}

// Save stores a snapshot.
func (s *InMemoryStorage) Save(_ context.Context, snap flow.Snapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("snapshot missing run id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[snap.RunID] = append(s.runs[snap.RunID], snap)
	return nil
}

// Load returns a run's snapshots ordered by tick.
func (s *InMemoryStorage) Load(_ context.Context, runID string) ([]flow.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := make([]flow.Snapshot, len(s.runs[runID]))
	copy(snaps, s.runs[runID])
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Tick < snaps[j].Tick })
	return snaps, nil
}

// Latest returns the highest-tick snapshot, or nil.
func (s *InMemoryStorage) Latest(ctx context.Context, runID string) (*flow.Snapshot, error) {
	snaps, err := s.Load(ctx, runID)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	last := snaps[len(snaps)-1]
	return &last, nil
}

// Delete removes a run's snapshots.
func (s *InMemoryStorage) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}
