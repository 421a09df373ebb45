package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/models"
	"github.com/ObiAU/questradar/internal/notify"
)

const defaultTimeout = 15 * time.Second

// Sender pushes notifications to every enabled Telegram target whose project
// list accepts the event's alias. Bot clients are cached per token.
type Sender struct {
	logger   *zap.Logger
	endpoint string
	client   *http.Client
	perChat  rate.Limit

	mu       sync.Mutex
	targets  []config.Target
	bots     map[string]*tgbotapi.BotAPI
	limiters map[string]*rate.Limiter
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{
		logger:   logger.Named("telegram"),
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		perChat:  rate.Every(time.Second),
		bots:     make(map[string]*tgbotapi.BotAPI),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *Sender) Name() string { return "telegram" }

// Configure implements notify.Configurable.
func (s *Sender) Configure(cfg *config.Config) {
	targets := cfg.TelegramTargets()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append([]config.Target(nil), targets...)
}

func (s *Sender) Targets() []config.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]config.Target(nil), s.targets...)
}

// Send implements notify.Sender. Every matching target is attempted; failures
// are joined.
func (s *Sender) Send(ctx context.Context, ev models.NotifyEvent) error {
	text := notify.FormatHTML(ev)

	var errs []error
	sent := 0
	for _, t := range s.Targets() {
		if !t.IsEnabled() || !t.Accepts(ev.Alias) {
			continue
		}
		if t.BotToken == "" || t.ChatID == "" {
			s.logger.Warn("Telegram target missing token or chat id", zap.String("target", t.Name))
			continue
		}
		if err := s.sendTo(ctx, t, text); err != nil {
			errs = append(errs, fmt.Errorf("target %q: %w", t.Name, err))
			continue
		}
		sent++
	}
	if sent == 0 && len(errs) == 0 {
		s.logger.Debug("No Telegram target accepted notification", zap.String("alias", ev.Alias))
	}
	return errors.Join(errs...)
}

func (s *Sender) sendTo(ctx context.Context, t config.Target, text string) error {
	bot, err := s.bot(t.BotToken)
	if err != nil {
		return err
	}
	msg, err := newMessage(t.ChatID, text)
	if err != nil {
		return err
	}
	if err := s.limiter(t.ChatID).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *Sender) bot(token string) (*tgbotapi.BotAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bots[token]; ok {
		return b, nil
	}
	b, err := tgbotapi.NewBotAPIWithClient(token, s.endpoint, s.client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	s.bots[token] = b
	return b, nil
}

func (s *Sender) limiter(chatID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(s.perChat, 1)
		s.limiters[chatID] = l
	}
	return l
}

// newMessage accepts numeric chat ids and @channel usernames.
func newMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return msg, fmt.Errorf("invalid chat id %q: %w", chatID, err)
		}
		msg = tgbotapi.NewMessage(id, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	// Keep the campaign link preview.
	msg.DisableWebPagePreview = false
	return msg, nil
}
