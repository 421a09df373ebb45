package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ObiAU/questradar/internal/models"
)

// State holds the most recently published snapshot. Publishing swaps the
// pointer; readers never see a partially built cycle. Snapshots are treated
// as immutable once published.
type State struct {
	current atomic.Pointer[models.Snapshot]
}

func NewState(initial *models.Snapshot) *State {
	s := &State{}
	if initial == nil {
		initial = &models.Snapshot{}
	}
	s.current.Store(initial)
	return s
}

func (s *State) Publish(snap *models.Snapshot) {
	s.current.Store(snap)
}

func (s *State) Current() *models.Snapshot {
	return s.current.Load()
}

// InitialSnapshot lists the configured projects without campaign data, used
// until the first cycle completes when no snapshot file exists.
func InitialSnapshot(projects []models.Project) *models.Snapshot {
	states := make([]models.ProjectState, 0, len(projects))
	for _, p := range projects {
		states = append(states, models.ProjectState{
			Project: p,
			URL:     "#",
			Status:  models.StateUnknown,
		})
	}
	return &models.Snapshot{Projects: states}
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. A missing file
// returns os.ErrNotExist.
func ReadSnapshot(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// WriteSnapshot persists snap through a temp file and rename so a crash never
// leaves a truncated file behind.
func WriteSnapshot(path string, snap *models.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
