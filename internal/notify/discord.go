package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/models"
)

const (
	defaultDiscordTimeout = 10 * time.Second
	discordMaxContent     = 2000
	discordMaxRetries     = 2
	userAgent             = "questradar/1"
)

// DiscordSender posts notifications to a Discord webhook.
type DiscordSender struct {
	httpClient *http.Client
	logger     *zap.Logger
	backoff    time.Duration

	mu  sync.RWMutex
	url string
}

func NewDiscordSender(logger *zap.Logger, webhookURL string) *DiscordSender {
	return &DiscordSender{
		httpClient: &http.Client{Timeout: defaultDiscordTimeout},
		logger:     logger.Named("discord"),
		backoff:    time.Second,
		url:        webhookURL,
	}
}

func (s *DiscordSender) Name() string { return "discord" }

// Configure implements Configurable.
func (s *DiscordSender) Configure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = cfg.DiscordWebhookURL
}

func (s *DiscordSender) webhookURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// Send implements Sender. A missing webhook URL is not an error; the
// transport is simply not set up.
func (s *DiscordSender) Send(ctx context.Context, ev models.NotifyEvent) error {
	target := s.webhookURL()
	if target == "" {
		s.logger.Debug("No Discord webhook configured, skipping")
		return nil
	}
	if err := validateWebhookURL(target); err != nil {
		return err
	}

	body, err := discordPayload(FormatText(ev))
	if err != nil {
		return fmt.Errorf("build discord payload: %w", err)
	}

	var lastErr error
	for attempt := range discordMaxRetries + 1 {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * s.backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			}
		}

		lastErr = s.post(ctx, target, body)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		s.logger.Debug("Discord send transient failure, will retry",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("discord send failed after %d attempts: %w", discordMaxRetries+1, lastErr)
}

func (s *DiscordSender) post(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &sendError{err: err, retryable: true}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &sendError{
		err:       fmt.Errorf("discord returned HTTP %d", resp.StatusCode),
		retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
	}
}

// discordPayload builds {"content": ..., "allowed_mentions": {"parse": []}}
// so campaign titles can never ping a channel.
func discordPayload(content string) ([]byte, error) {
	if runes := []rune(content); len(runes) > discordMaxContent {
		content = string(runes[:discordMaxContent-1]) + "…"
	}
	body, err := sjson.SetBytes([]byte(`{}`), "content", content)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "allowed_mentions.parse", []string{})
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("webhook URL must include a host")
	}
	return nil
}

// sendError wraps a transport error with a retryable flag.
type sendError struct {
	err       error
	retryable bool
}

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var se *sendError
	if errors.As(err, &se) {
		return se.retryable
	}
	return true
}
