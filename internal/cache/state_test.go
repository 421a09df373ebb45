package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObiAU/questradar/internal/models"
)

func TestState_PublishSwapsWholeSnapshot(t *testing.T) {
	s := NewState(nil)
	require.NotNil(t, s.Current())
	assert.Empty(t, s.Current().Projects)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			projects := make([]models.ProjectState, i%5+1)
			s.Publish(&models.Snapshot{CycleID: "c", Projects: projects})
		}()
		go func() {
			defer wg.Done()
			snap := s.Current()
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()

	final := &models.Snapshot{CycleID: "final"}
	s.Publish(final)
	assert.Same(t, final, s.Current())
}

func TestInitialSnapshot(t *testing.T) {
	snap := InitialSnapshot([]models.Project{{Name: "BNB Chain", Alias: "bnbchain", Category: models.CategoryTrending}})

	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "bnbchain", snap.Projects[0].Alias)
	assert.Nil(t, snap.Projects[0].Latest)
	assert.Equal(t, "#", snap.Projects[0].URL)
	assert.True(t, snap.LastLoop.IsZero())
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "monitor_state.json")
	campaign, err := models.DecodeCampaign([]byte(`{"id":"GC1","name":"Quest","startTime":1714564800000,"endTime":null}`))
	require.NoError(t, err)

	snap := &models.Snapshot{
		CycleID:  "abc",
		LastLoop: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Projects: []models.ProjectState{
			{Project: models.Project{Name: "Galxe", Alias: "Galxe", Category: models.CategoryTrending}, Latest: campaign, URL: "https://app.galxe.com/quest/Galxe/GC1", Status: models.StateOngoing},
			{Project: models.Project{Name: "Empty", Alias: "empty", Category: models.CategoryCustom}, URL: "#", Status: models.StateUnknown},
		},
	}
	require.NoError(t, WriteSnapshot(path, snap))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "abc", generic["cycle_id"])

	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, loaded.Projects, 2)
	assert.Equal(t, "GC1", loaded.Projects[0].Latest.ID())
	assert.Equal(t, "1714564800000", loaded.Projects[0].Latest.StartTime().(json.Number).String())
	assert.Nil(t, loaded.Projects[1].Latest)
	assert.True(t, snap.LastLoop.Equal(loaded.LastLoop))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestReadSnapshot_Missing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
