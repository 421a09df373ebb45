package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ObiAU/questradar/internal/cache"
	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/galxe"
	"github.com/ObiAU/questradar/internal/lifecycle"
	"github.com/ObiAU/questradar/internal/models"
	"github.com/ObiAU/questradar/internal/notify"
)

const (
	defaultPollInterval = 30 * time.Second
	minPollInterval     = time.Second
	shutdownTimeout     = 5 * time.Second
)

// Fetcher returns the newest campaign for a space alias.
type Fetcher interface {
	FetchLatest(ctx context.Context, alias string) (*models.Campaign, error)
}

// ConfigSource is re-read at the start of every cycle.
type ConfigSource interface {
	Load() (*config.Config, error)
}

type Notifier interface {
	Apply(cfg *config.Config)
	Dispatch(ctx context.Context, ev models.NotifyEvent) error
}

type Deps struct {
	Logger   *zap.Logger
	Configs  ConfigSource
	Fetcher  Fetcher
	Notifier Notifier
	Dedup    *cache.Dedup
	State    *cache.State
}

// Monitor owns the polling loop. Only the loop goroutine mutates dedup
// state; HTTP handlers read the published snapshot.
type Monitor struct {
	logger   *zap.Logger
	configs  ConfigSource
	fetcher  Fetcher
	notifier Notifier
	dedup    *cache.Dedup
	state    *cache.State

	now        func() time.Time
	newCycleID func() string

	mu        sync.RWMutex
	cfg       *config.Config
	ranker    *lifecycle.Ranker
	running   bool
	pastFirst bool
	cycles    int
	server    *http.Server
}

func New(d Deps) *Monitor {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Dedup == nil {
		d.Dedup = cache.NewDedup()
	}
	if d.State == nil {
		d.State = cache.NewState(nil)
	}
	return &Monitor{
		logger:     d.Logger.Named("monitor"),
		configs:    d.Configs,
		fetcher:    d.Fetcher,
		notifier:   d.Notifier,
		dedup:      d.Dedup,
		state:      d.State,
		now:        time.Now,
		newCycleID: uuid.NewString,
		cfg:        &config.Config{},
		ranker:     lifecycle.DefaultRanker(),
	}
}

// Run executes a cycle immediately, then one per poll interval, and serves
// the HTTP endpoints until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	cfg, err := m.configs.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	m.applyConfig(cfg)

	if err := m.startHTTPServer(cfg.WebUIPort); err != nil {
		return err
	}

	m.setRunning(true)
	defer m.setRunning(false)

	m.logger.Info("Monitor started",
		zap.Int("projects", len(cfg.Projects)),
		zap.Duration("poll_interval", pollInterval(cfg)),
		zap.Int("port", cfg.WebUIPort),
	)

	interval := pollInterval(cfg)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.cycle(ctx)
	for {
		if next := pollInterval(m.Config()); next != interval {
			interval = next
			ticker.Reset(interval)
			m.logger.Info("Poll interval changed", zap.Duration("poll_interval", interval))
		}
		select {
		case <-ctx.Done():
			return m.shutdown()
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	if err := m.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error("Polling cycle failed", zap.Error(err))
	}
}

// RunCycle performs one full poll: reload configuration, fetch and classify
// every project, gate and dispatch notifications, then publish the snapshot.
// The first cycle never notifies and leaves dedup state untouched. A
// cancelled cycle publishes nothing.
func (m *Monitor) RunCycle(ctx context.Context) error {
	started := time.Now()
	cfg, err := m.configs.Load()
	if err != nil {
		cyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load config: %w", err)
	}
	m.applyConfig(cfg)

	cycleID := m.newCycleID()
	logger := m.logger.With(zap.String("cycle_id", cycleID))
	gate := notify.NewGate(cfg.NotifyEndHorizon, cfg.NotifyStartHorizon)
	loc := cfg.DisplayLocation()

	m.mu.RLock()
	first := !m.pastFirst
	m.mu.RUnlock()

	states := make([]models.ProjectState, 0, len(cfg.Projects))
	notified, failed := 0, 0
	for _, p := range cfg.Projects {
		if err := ctx.Err(); err != nil {
			cyclesTotal.WithLabelValues("cancelled").Inc()
			return err
		}

		c, err := m.fetcher.FetchLatest(ctx, p.Alias)
		if err != nil {
			if ctx.Err() != nil {
				cyclesTotal.WithLabelValues("cancelled").Inc()
				return ctx.Err()
			}
			failed++
			fetchFailuresTotal.Inc()
			logger.Warn("Fetch failed", zap.String("alias", p.Alias), zap.Error(err))
			c = nil
		}

		now := m.now()
		status := lifecycle.Classify(c, now)
		url := galxe.CampaignURL(p.Alias, c)
		states = append(states, models.ProjectState{Project: p, Latest: c, URL: url, Status: status})

		last, _ := m.dedup.LastNotified(p.Alias)
		decision := gate.Evaluate(notify.Input{
			Alias:        p.Alias,
			Campaign:     c,
			State:        status,
			LastNotified: last,
			FirstCycle:   first,
			Now:          now,
		})
		notify.ObserveDecision(decision)

		switch {
		case decision.Notify:
			// Recorded before sending: a failed send is not retried.
			m.dedup.Record(p.Alias, decision.CampaignID, now)
			notified++
			ev := notify.BuildEvent(p, c, status, url, loc)
			if err := m.notifier.Dispatch(ctx, ev); err != nil {
				logger.Warn("Notification delivery incomplete",
					zap.String("alias", p.Alias),
					zap.String("campaign_id", decision.CampaignID),
					zap.Error(err),
				)
			}
		default:
			logger.Debug("Notification suppressed",
				zap.String("alias", p.Alias),
				zap.String("reason", string(decision.Reason)),
			)
		}
	}

	if dropped := m.dedup.Retain(cfg.Aliases()); dropped > 0 {
		logger.Info("Dropped dedup state for removed projects", zap.Int("count", dropped))
	}

	snap := &models.Snapshot{CycleID: cycleID, LastLoop: m.now().UTC(), Projects: states}
	m.state.Publish(snap)
	trackedProjects.Set(float64(len(states)))

	m.mu.Lock()
	m.pastFirst = true
	m.cycles++
	m.mu.Unlock()

	if cfg.SnapshotPath != "" {
		if err := cache.WriteSnapshot(cfg.SnapshotPath, snap); err != nil {
			logger.Warn("Failed to write snapshot", zap.String("path", cfg.SnapshotPath), zap.Error(err))
		}
	}

	elapsed := time.Since(started)
	cycleDuration.Observe(elapsed.Seconds())
	cyclesTotal.WithLabelValues("ok").Inc()
	logger.Info("Polling cycle complete",
		zap.Int("projects", len(states)),
		zap.Int("notified", notified),
		zap.Int("fetch_failures", failed),
		zap.Bool("first_cycle", first),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func (m *Monitor) applyConfig(cfg *config.Config) {
	m.notifier.Apply(cfg)

	if cfg.PollInterval != 0 && cfg.PollInterval < minPollInterval {
		m.logger.Warn("poll_interval below one second, using default",
			zap.Duration("poll_interval", cfg.PollInterval),
			zap.Duration("default", defaultPollInterval),
		)
	}

	ranker := lifecycle.DefaultRanker()
	if len(cfg.StatusOrder) > 0 {
		order, err := lifecycle.ParseOrder(cfg.StatusOrder)
		if err == nil {
			ranker, err = lifecycle.NewRanker(order)
		}
		if err != nil {
			m.logger.Warn("Invalid status_order, using default", zap.Strings("status_order", cfg.StatusOrder), zap.Error(err))
			ranker = lifecycle.DefaultRanker()
		}
	}

	m.mu.Lock()
	m.cfg = cfg
	m.ranker = ranker
	m.mu.Unlock()
}

// Config is the configuration loaded by the most recent cycle.
func (m *Monitor) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Monitor) Ranker() *lifecycle.Ranker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ranker
}

func (m *Monitor) Cycles() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cycles
}

func (m *Monitor) setRunning(v bool) {
	m.mu.Lock()
	m.running = v
	m.mu.Unlock()
}

func (m *Monitor) isRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// pollInterval rejects values under a second; a bare number in the config
// file decodes as nanoseconds.
func pollInterval(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.PollInterval < minPollInterval {
		return defaultPollInterval
	}
	return cfg.PollInterval
}

func (m *Monitor) shutdown() error {
	m.logger.Info("Shutting down monitor")

	m.mu.RLock()
	srv := m.server
	m.mu.RUnlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
