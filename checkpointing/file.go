package checkpointing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rivalscan/rivalscan/flow"
)

// FileStorage persists snapshots as JSON files, one per tick, under a
// per-run directory: <dir>/run_<runID>/tick_<n>.json.
type FileStorage struct {
	dir string
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a file storage rooted at dir.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("file storage requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) runDir(runID string) string {
	return filepath.Join(s.dir, "run_"+runID)
}

// Save writes one snapshot file.
func (s *FileStorage) Save(_ context.Context, snap flow.Snapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("snapshot missing run id")
	}
	dir := s.runDir(snap.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("tick_%04d.json", snap.Tick))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads all snapshot files for a run, ordered by tick.
func (s *FileStorage) Load(_ context.Context, runID string) ([]flow.Snapshot, error) {
	entries, err := os.ReadDir(s.runDir(runID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}

	var snaps []flow.Snapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		payload, err := os.ReadFile(filepath.Join(s.runDir(runID), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", entry.Name(), err)
		}
		var snap flow.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", entry.Name(), err)
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Tick < snaps[j].Tick })
	return snaps, nil
}

// Latest returns the highest-tick snapshot, or nil.
func (s *FileStorage) Latest(ctx context.Context, runID string) (*flow.Snapshot, error) {
	snaps, err := s.Load(ctx, runID)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	last := snaps[len(snaps)-1]
	return &last, nil
}

// Delete removes the run's directory.
func (s *FileStorage) Delete(_ context.Context, runID string) error {
	return os.RemoveAll(s.runDir(runID))
}
