package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ObiAU/questradar/internal/cache"
	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/galxe"
	"github.com/ObiAU/questradar/internal/models"
	"github.com/ObiAU/questradar/internal/monitor"
	"github.com/ObiAU/questradar/internal/notify"
	"github.com/ObiAU/questradar/internal/telegram"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poller and the dashboard",
		Long: `Runs one polling cycle immediately and then one per poll_interval, and
serves the dashboard, /api/raw, /health, /stats and /metrics on webui_port.
The first cycle only records a baseline; notifications start from the second.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			m := monitor.New(monitor.Deps{
				Logger:   logger,
				Configs:  store,
				Fetcher:  galxe.NewClient(cfg.GalxeEndpoint, cfg.RequestTimeout, cfg.FetchRatePerSecond),
				Notifier: newDispatcher(logger, cfg),
				Dedup:    cache.NewDedup(),
				State:    cache.NewState(loadSnapshot(logger, cfg)),
			})

			logger.Info("Starting Quest Radar",
				zap.String("version", version),
				zap.String("config", store.Path()),
				zap.String("dashboard", fmt.Sprintf("http://localhost:%d/?pwd=<webui_password>", cfg.WebUIPort)),
			)
			if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("Quest Radar stopped gracefully")
			return nil
		},
	}
}

func newDispatcher(logger *zap.Logger, cfg *config.Config) *notify.Dispatcher {
	d := notify.NewDispatcher(logger,
		telegram.NewSender(logger),
		notify.NewDiscordSender(logger, cfg.DiscordWebhookURL),
	)
	d.Apply(cfg)
	return d
}

// loadSnapshot restores the last published snapshot for the read path, or
// lists the configured projects when none was written yet.
func loadSnapshot(logger *zap.Logger, cfg *config.Config) *models.Snapshot {
	if cfg.SnapshotPath != "" {
		snap, err := cache.ReadSnapshot(cfg.SnapshotPath)
		if err == nil {
			logger.Info("Loaded previous snapshot",
				zap.String("path", cfg.SnapshotPath),
				zap.Int("projects", len(snap.Projects)),
			)
			return snap
		}
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Ignoring unreadable snapshot", zap.String("path", cfg.SnapshotPath), zap.Error(err))
		}
	}
	return cache.InitialSnapshot(cfg.Projects)
}
