package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/models"
)

// Sender delivers a notification over one transport.
type Sender interface {
	// Name identifies the transport ("telegram", "discord").
	Name() string

	// Send delivers ev. Implementations handle their own fan-out and retries.
	Send(ctx context.Context, ev models.NotifyEvent) error
}

// Configurable senders pick up credentials and targets from each reloaded
// configuration.
type Configurable interface {
	Configure(cfg *config.Config)
}

// Dispatcher routes events to the senders selected by the notify method.
type Dispatcher struct {
	logger   *zap.Logger
	telegram Sender
	discord  Sender

	mu     sync.RWMutex
	method config.Method
}

// NewDispatcher accepts nil senders for transports that are not wired.
func NewDispatcher(logger *zap.Logger, telegram, discord Sender) *Dispatcher {
	return &Dispatcher{
		logger:   logger.Named("dispatcher"),
		telegram: telegram,
		discord:  discord,
		method:   config.MethodNone,
	}
}

// Apply takes the notify method from cfg and reconfigures the senders.
func (d *Dispatcher) Apply(cfg *config.Config) {
	method := cfg.Method()

	d.mu.Lock()
	changed := d.method != method
	d.method = method
	d.mu.Unlock()

	if changed {
		d.logger.Info("Notify method changed", zap.String("method", string(method)))
	}
	for _, s := range []Sender{d.telegram, d.discord} {
		if c, ok := s.(Configurable); ok {
			c.Configure(cfg)
		}
	}
}

func (d *Dispatcher) Method() config.Method {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.method
}

// Dispatch sends ev over every transport the current method selects. All
// transports are attempted; failures are joined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.NotifyEvent) error {
	method := d.Method()
	if method == config.MethodNone {
		d.logger.Debug("Notify method is none, skipping", zap.String("alias", ev.Alias))
		return nil
	}

	var senders []Sender
	if method.UsesTelegram() && d.telegram != nil {
		senders = append(senders, d.telegram)
	}
	if method.UsesDiscord() && d.discord != nil {
		senders = append(senders, d.discord)
	}

	var errs []error
	for _, s := range senders {
		start := time.Now()
		err := s.Send(ctx, ev)
		ObserveSend(s.Name(), time.Since(start).Seconds(), err)
		if err != nil {
			d.logger.Error("Notification send failed",
				zap.String("sender", s.Name()),
				zap.String("alias", ev.Alias),
				zap.String("campaign_id", ev.CampaignID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		d.logger.Info("Notification sent",
			zap.String("sender", s.Name()),
			zap.String("alias", ev.Alias),
			zap.String("campaign_id", ev.CampaignID),
		)
	}
	return errors.Join(errs...)
}
