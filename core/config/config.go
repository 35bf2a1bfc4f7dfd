package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID is the bot owner: admin-only commands and membership
	// notifications go to this user. 0 disables both.
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// BotURL is the t.me link users follow to open a private chat.
	BotURL string `yaml:"bot_url" envconfig:"TELEGRAM_BOT_URL"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// "callback" for inline button presses and "message" for commands.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads the core configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills out from the YAML file at path, then overlays environment
// variables. A missing file is not an error so deployments can configure
// through the environment alone.
func Decode(path string, out any) error {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	for _, step := range []func() error{
		cfg.Telegram.normalize,
		func() error { return cfg.Webhook.validate(cfg.Telegram.RunMode) },
		cfg.RateLimit.normalize,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramConfig) normalize() error {
	if t.Token == "" {
		return errors.New("telegram token is required")
	}
	switch mode := strings.ToLower(strings.TrimSpace(t.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
	case RunModeWebhook:
		t.RunMode = mode
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode)
	}
	if t.LongPollTimeoutSeconds < 0 {
		return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
	}
	if u := strings.TrimSpace(t.BotURL); u != "" && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("telegram.bot_url must be an https link, got %q", u)
	}
	return nil
}

func (w WebhookConfig) validate(mode string) error {
	if mode != RunModeWebhook {
		return nil
	}
	var missing []string
	if strings.TrimSpace(w.URL) == "" {
		missing = append(missing, "webhook.url")
	}
	if strings.TrimSpace(w.Listen) == "" {
		missing = append(missing, "webhook.listen")
	}
	if w.Port <= 0 {
		missing = append(missing, "webhook.port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("webhook mode needs %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r *RateLimitConfig) normalize() error {
	out := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		switch key := strings.ToLower(strings.TrimSpace(v)); key {
		case "":
		case UpdateCallback, UpdateMessage:
			out = append(out, key)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
	}
	r.ExcludeUpdates = out
	return nil
}
