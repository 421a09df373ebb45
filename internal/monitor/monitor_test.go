package monitor

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ObiAU/questradar/internal/cache"
	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/lifecycle"
	"github.com/ObiAU/questradar/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type staticConfig struct {
	mu  sync.Mutex
	cfg *config.Config
}

func (s *staticConfig) Load() (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.cfg
	return &copied, nil
}

func (s *staticConfig) set(fn func(*config.Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
}

type fakeFetcher struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
	errs      map[string]error
	calls     []string
}

func (f *fakeFetcher) FetchLatest(_ context.Context, alias string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, alias)
	if err := f.errs[alias]; err != nil {
		return nil, err
	}
	return f.campaigns[alias], nil
}

func (f *fakeFetcher) set(alias string, c *models.Campaign) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[alias] = c
}

type fakeNotifier struct {
	mu      sync.Mutex
	err     error
	applied int
	events  []models.NotifyEvent
}

func (n *fakeNotifier) Apply(*config.Config) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.applied++
}

func (n *fakeNotifier) Dispatch(_ context.Context, ev models.NotifyEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) sent() []models.NotifyEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.NotifyEvent(nil), n.events...)
}

func quest(id string, start, end time.Duration) *models.Campaign {
	return models.NewCampaign(map[string]any{
		"id":        id,
		"name":      "Quest " + id,
		"startTime": testNow.Add(start).UnixMilli(),
		"endTime":   testNow.Add(end).UnixMilli(),
	})
}

type harness struct {
	m        *Monitor
	configs  *staticConfig
	fetcher  *fakeFetcher
	notifier *fakeNotifier
	state    *cache.State
}

func newHarness(t *testing.T, projects ...models.Project) *harness {
	h := &harness{
		configs: &staticConfig{cfg: &config.Config{
			NotifyMethod:  "telegram",
			WebUIPassword: "secret",
			Projects:      projects,
			SnapshotPath:  filepath.Join(t.TempDir(), "state.json"),
		}},
		fetcher:  &fakeFetcher{campaigns: map[string]*models.Campaign{}, errs: map[string]error{}},
		notifier: &fakeNotifier{},
		state:    cache.NewState(nil),
	}
	h.m = New(Deps{
		Logger:   zap.NewNop(),
		Configs:  h.configs,
		Fetcher:  h.fetcher,
		Notifier: h.notifier,
		State:    h.state,
	})
	h.m.now = func() time.Time { return testNow }
	return h
}

func (h *harness) cycle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.m.RunCycle(context.Background()))
}

var bnb = models.Project{Name: "BNB Chain", Alias: "bnbchain", Category: models.CategoryTrending}

func TestRunCycle_FirstCycleNeverNotifies(t *testing.T) {
	h := newHarness(t, bnb)
	h.fetcher.set("bnbchain", quest("GC1", -time.Hour, 5*day))

	h.cycle(t)
	assert.Empty(t, h.notifier.sent(), "first cycle never notifies")
	_, ok := h.m.dedup.LastNotified("bnbchain")
	assert.False(t, ok, "first cycle leaves dedup untouched")

	h.cycle(t)
	sent := h.notifier.sent()
	require.Len(t, sent, 1, "campaign seen on the first cycle is announced on the second")
	assert.Equal(t, "GC1", sent[0].CampaignID)
	assert.Equal(t, "https://app.galxe.com/quest/bnbchain/GC1", sent[0].URL)
	assert.Equal(t, models.StateOngoing, sent[0].State)

	h.cycle(t)
	assert.Len(t, h.notifier.sent(), 1, "same id never notified twice")

	h.fetcher.set("bnbchain", quest("GC2", -time.Hour, 5*day))
	h.cycle(t)
	sent = h.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "GC2", sent[1].CampaignID)
}

func TestRunCycle_SuppressedCampaignLeavesDedupUntouched(t *testing.T) {
	h := newHarness(t, bnb)
	h.cycle(t)

	h.fetcher.set("bnbchain", quest("FAR", time.Hour, 90*day))
	h.cycle(t)

	_, ok := h.m.dedup.LastNotified("bnbchain")
	assert.False(t, ok)
	assert.Empty(t, h.notifier.sent())
}

func TestRunCycle_FailedSendIsNotRetried(t *testing.T) {
	h := newHarness(t, bnb)
	h.notifier.err = errors.New("telegram down")
	h.cycle(t)

	h.fetcher.set("bnbchain", quest("GC1", -time.Hour, 5*day))
	h.cycle(t)
	h.cycle(t)

	assert.Len(t, h.notifier.sent(), 1)
	last, ok := h.m.dedup.LastNotified("bnbchain")
	require.True(t, ok)
	assert.Equal(t, "GC1", last)
}

func TestRunCycle_FetchFailureDegrades(t *testing.T) {
	other := models.Project{Name: "Other", Alias: "other", Category: models.CategoryCustom}
	h := newHarness(t, bnb, other)
	h.fetcher.errs["bnbchain"] = errors.New("timeout")
	h.fetcher.set("other", quest("O1", -time.Hour, day))

	h.cycle(t)

	snap := h.state.Current()
	require.Len(t, snap.Projects, 2)
	assert.Nil(t, snap.Projects[0].Latest)
	assert.Equal(t, models.StateUnknown, snap.Projects[0].Status)
	assert.Equal(t, "#", snap.Projects[0].URL)
	assert.Equal(t, "O1", snap.Projects[1].Latest.ID())
	assert.Equal(t, []string{"bnbchain", "other"}, h.fetcher.calls)
}

func TestRunCycle_GateSuppressesStaleCampaigns(t *testing.T) {
	h := newHarness(t, bnb)
	h.cycle(t)

	h.fetcher.set("bnbchain", quest("OLD", -40*day, 5*day))
	h.cycle(t)
	h.fetcher.set("bnbchain", quest("FAR", time.Hour, 90*day))
	h.cycle(t)
	h.fetcher.set("bnbchain", quest("DONE", -5*day, -time.Hour))
	h.cycle(t)

	assert.Empty(t, h.notifier.sent())
}

func TestRunCycle_PublishesAndPersistsSnapshot(t *testing.T) {
	h := newHarness(t, bnb)
	h.m.newCycleID = func() string { return "c-1" }
	h.fetcher.set("bnbchain", quest("GC1", day, 5*day))

	h.cycle(t)

	snap := h.state.Current()
	assert.Equal(t, "c-1", snap.CycleID)
	assert.Equal(t, testNow, snap.LastLoop)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, models.StateNotStarted, snap.Projects[0].Status)

	onDisk, err := cache.ReadSnapshot(h.configs.cfg.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, "c-1", onDisk.CycleID)
	require.Len(t, onDisk.Projects, 1)
	assert.Equal(t, "GC1", onDisk.Projects[0].Latest.ID())
	assert.Equal(t, 1, h.m.Cycles())
	assert.Equal(t, 1, h.notifier.applied)
}

func TestRunCycle_DropsRemovedProjects(t *testing.T) {
	h := newHarness(t, bnb)
	h.fetcher.set("bnbchain", quest("GC1", -time.Hour, day))
	h.cycle(t)
	h.cycle(t)
	require.Equal(t, 1, h.m.dedup.Len())

	h.configs.set(func(c *config.Config) { c.Projects = nil })
	h.cycle(t)
	assert.Equal(t, 0, h.m.dedup.Len())
	assert.Empty(t, h.state.Current().Projects)
}

func TestRunCycle_CancelledPublishesNothing(t *testing.T) {
	h := newHarness(t, bnb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.m.RunCycle(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.state.Current().CycleID)
	assert.Equal(t, 0, h.m.Cycles())
}

func TestApplyConfig_InvalidStatusOrderFallsBack(t *testing.T) {
	h := newHarness(t, bnb)
	h.configs.set(func(c *config.Config) { c.StatusOrder = []string{"ongoing", "ongoing"} })
	h.cycle(t)
	assert.Equal(t, lifecycle.DefaultOrder, h.m.Ranker().Order())

	h.configs.set(func(c *config.Config) { c.StatusOrder = []string{"ended", "ongoing", "not_started", "unknown"} })
	h.cycle(t)
	assert.Equal(t, models.StateEnded, h.m.Ranker().Order()[0])
}

func TestRun_FailsWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	h := newHarness(t, bnb)
	h.configs.set(func(c *config.Config) { c.WebUIPort = ln.Addr().(*net.TCPAddr).Port })

	err = h.m.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
	assert.Equal(t, 0, h.m.Cycles(), "no cycle runs without the HTTP server")
}

func TestRun_CyclesUntilCancelled(t *testing.T) {
	h := newHarness(t, bnb)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.m.Run(ctx) }()

	require.Eventually(t, func() bool { return h.m.Cycles() >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPollInterval_RejectsSubSecond(t *testing.T) {
	assert.Equal(t, defaultPollInterval, pollInterval(nil))
	assert.Equal(t, defaultPollInterval, pollInterval(&config.Config{}))
	assert.Equal(t, defaultPollInterval, pollInterval(&config.Config{PollInterval: 30}), "bare number decodes as nanoseconds")
	assert.Equal(t, defaultPollInterval, pollInterval(&config.Config{PollInterval: 999 * time.Millisecond}))
	assert.Equal(t, time.Second, pollInterval(&config.Config{PollInterval: time.Second}))
	assert.Equal(t, 2*time.Minute, pollInterval(&config.Config{PollInterval: 2 * time.Minute}))
}

func TestApplyConfig_WarnsOnSubSecondPollInterval(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t, bnb)
	h.m.logger = zap.New(core)
	h.configs.set(func(c *config.Config) { c.PollInterval = 30 })

	h.cycle(t)

	assert.Equal(t, 1, logs.FilterMessage("poll_interval below one second, using default").Len())
}
