package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/ObiAU/questradar/internal/models"
)

const DefaultPath = "config_files/config.json"

const envPrefix = "RADAR"

// Target is one Telegram push destination. An empty Projects list means the
// target receives every project.
type Target struct {
	Name     string   `mapstructure:"name" json:"name"`
	BotToken string   `mapstructure:"bot_token" json:"bot_token"`
	ChatID   string   `mapstructure:"chat_id" json:"chat_id"`
	Enabled  *bool    `mapstructure:"enabled" json:"enabled,omitempty"`
	Projects []string `mapstructure:"projects" json:"projects"`
}

// IsEnabled defaults to true when the key is absent.
func (t Target) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Accepts reports whether a notification for alias goes to this target.
// Notifications without an alias (tests) reach every target.
func (t Target) Accepts(alias string) bool {
	if len(t.Projects) == 0 || alias == "" {
		return true
	}
	for _, p := range t.Projects {
		if p == alias {
			return true
		}
	}
	return false
}

type Config struct {
	WebUIPort          int              `mapstructure:"webui_port"`
	WebUIPassword      string           `mapstructure:"webui_password"`
	NotifyMethod       string           `mapstructure:"notify_method"`
	TelegramBotToken   string           `mapstructure:"telegram_bot_token"`
	TelegramChatID     string           `mapstructure:"telegram_chat_id"`
	DiscordWebhookURL  string           `mapstructure:"discord_webhook_url"`
	NotifyTargets      []Target         `mapstructure:"notify_targets"`
	Projects           []models.Project `mapstructure:"projects"`
	PollInterval       time.Duration    `mapstructure:"poll_interval"`
	RequestTimeout     time.Duration    `mapstructure:"request_timeout"`
	FetchRatePerSecond float64          `mapstructure:"fetch_rate_per_second"`
	GalxeEndpoint      string           `mapstructure:"galxe_endpoint"`
	SnapshotPath       string           `mapstructure:"snapshot_path"`
	LogLevel           string           `mapstructure:"log_level"`
	LogFormat          string           `mapstructure:"log_format"`
	StatusOrder        []string         `mapstructure:"status_order"`
	DisplayUTCOffset   int              `mapstructure:"display_utc_offset"`
	NotifyEndHorizon   time.Duration    `mapstructure:"notify_end_horizon"`
	NotifyStartHorizon time.Duration    `mapstructure:"notify_start_horizon"`
}

// Method returns the parsed notify method, falling back to none.
func (c *Config) Method() Method {
	m, err := ParseMethod(c.NotifyMethod)
	if err != nil {
		return MethodNone
	}
	return m
}

// TelegramTargets returns the configured targets, or the legacy single
// token/chat pair when no targets are listed.
func (c *Config) TelegramTargets() []Target {
	if len(c.NotifyTargets) > 0 {
		return c.NotifyTargets
	}
	if c.TelegramBotToken != "" && c.TelegramChatID != "" {
		return []Target{{Name: "default", BotToken: c.TelegramBotToken, ChatID: c.TelegramChatID}}
	}
	return nil
}

// DisplayLocation is the fixed zone used to render instants.
func (c *Config) DisplayLocation() *time.Location {
	if c.DisplayUTCOffset == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.DisplayUTCOffset), c.DisplayUTCOffset*3600)
}

func (c *Config) Aliases() []string {
	aliases := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		aliases = append(aliases, p.Alias)
	}
	return aliases
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webui_port", 5001)
	v.SetDefault("webui_password", "admin")
	v.SetDefault("notify_method", string(MethodNone))
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("discord_webhook_url", "")
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("fetch_rate_per_second", 4.0)
	v.SetDefault("galxe_endpoint", "https://graphigo.prd.galaxy.eco/query")
	v.SetDefault("snapshot_path", "data/monitor_state.json")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("status_order", []string{"ongoing", "not_started", "unknown", "ended"})
	v.SetDefault("display_utc_offset", 8)
	v.SetDefault("notify_end_horizon", 60*24*time.Hour)
	v.SetDefault("notify_start_horizon", 30*24*time.Hour)
}

// Store reads and writes the JSON configuration file. Writes are serialised
// within the process; the poller re-reads the file every cycle.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Ensure writes a default configuration when the file does not exist yet.
func (s *Store) Ensure() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	cfg, err := s.read(false)
	if err != nil {
		return false, err
	}
	cfg.WebUIPassword = getEnv("WEBUI_PASSWORD", cfg.WebUIPassword)
	cfg.Projects = []models.Project{
		{Name: "BNB Chain", Alias: "bnbchain", Category: models.CategoryTrending},
		{Name: "Galxe Official", Alias: "Galxe", Category: models.CategoryTrending},
		{Name: "OKX Web3", Alias: "okxweb3", Category: models.CategoryTrending},
	}
	if err := s.write(cfg); err != nil {
		return false, err
	}
	return true, nil
}

// Load reads the file and applies RADAR_* environment overrides.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(true)
}

// Update applies fn to the on-disk configuration (without environment
// overrides, so secrets from the environment never land in the file) and
// saves the result.
func (s *Store) Update(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.read(false)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return s.write(cfg)
}

func (s *Store) read(withEnv bool) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	if withEnv {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		if err := v.BindEnv("webui_password", envPrefix+"_WEBUI_PASSWORD", "WEBUI_PASSWORD"); err != nil {
			return nil, fmt.Errorf("bind env: %w", err)
		}
	}

	if data, err := os.ReadFile(s.path); err == nil {
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", s.path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for i := range cfg.Projects {
		cfg.Projects[i].Category = models.NormalizeCategory(string(cfg.Projects[i].Category))
		if cfg.Projects[i].Name == "" {
			cfg.Projects[i].Name = cfg.Projects[i].Alias
		}
	}
	return &cfg, nil
}

func (s *Store) write(cfg *Config) error {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.MergeConfigMap(cfg.toMap()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

func (c *Config) toMap() map[string]any {
	projects := make([]any, 0, len(c.Projects))
	for _, p := range c.Projects {
		projects = append(projects, map[string]any{
			"name":     p.Name,
			"alias":    p.Alias,
			"category": string(p.Category),
		})
	}
	targets := make([]any, 0, len(c.NotifyTargets))
	for _, t := range c.NotifyTargets {
		targets = append(targets, map[string]any{
			"name":      t.Name,
			"bot_token": t.BotToken,
			"chat_id":   t.ChatID,
			"enabled":   t.IsEnabled(),
			"projects":  nonNil(t.Projects),
		})
	}

	return map[string]any{
		"webui_port":            c.WebUIPort,
		"webui_password":        c.WebUIPassword,
		"notify_method":         c.NotifyMethod,
		"telegram_bot_token":    c.TelegramBotToken,
		"telegram_chat_id":      c.TelegramChatID,
		"discord_webhook_url":   c.DiscordWebhookURL,
		"notify_targets":        targets,
		"projects":              projects,
		"poll_interval":         c.PollInterval.String(),
		"request_timeout":       c.RequestTimeout.String(),
		"fetch_rate_per_second": c.FetchRatePerSecond,
		"galxe_endpoint":        c.GalxeEndpoint,
		"snapshot_path":         c.SnapshotPath,
		"log_level":             c.LogLevel,
		"log_format":            c.LogFormat,
		"status_order":          nonNil(c.StatusOrder),
		"display_utc_offset":    c.DisplayUTCOffset,
		"notify_end_horizon":    c.NotifyEndHorizon.String(),
		"notify_start_horizon":  c.NotifyStartHorizon.String(),
	}
}

// MarshalJSON renders the persisted form, used by `questradar config show`.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toMap())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
