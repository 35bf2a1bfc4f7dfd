package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
telegram:
  token: from-file
  admin_id: 42
  bot_url: https://t.me/supper_bot
logging:
  level: debug
rate_limit:
  interval_ms: 500
  exclude_updates: [" Callback "]
`)
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-only")
	t.Setenv("TELEGRAM_RUN_MODE", "polling")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.Telegram.Token)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"no token":       {},
		"bad run mode":   {Telegram: TelegramConfig{Token: "x", RunMode: "push"}},
		"webhook no url": {Telegram: TelegramConfig{Token: "x", RunMode: RunModeWebhook}},
		"http bot url":   {Telegram: TelegramConfig{Token: "x", BotURL: "http://t.me/x"}},
		"bad exclusion":  {Telegram: TelegramConfig{Token: "x"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
}

func TestNormalizeWebhook(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "x", RunMode: "WEBHOOK"},
		Webhook:  WebhookConfig{URL: "https://example.org/hook", Listen: "0.0.0.0", Port: 8443},
	}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
}

func TestNormalizeWebhookListsMissingFields(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{Token: "x", RunMode: RunModeWebhook}}
	err := Normalize(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.url, webhook.listen, webhook.port")
}
