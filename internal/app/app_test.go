package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/supperbot/core/config"
	"github.com/m3rciful/supperbot/core/bootstrap"
	coretelegram "github.com/m3rciful/supperbot/core/telegram"
	"github.com/m3rciful/supperbot/internal/jio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  token: abc
  admin_id: 7
`))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, jio.DefaultWindow, cfg.Jio.Window)
	assert.Equal(t, jio.DefaultDelivery, cfg.Jio.DeliveryCents)
	assert.True(t, decimal.RequireFromString("0.07").Equal(cfg.Jio.Rate()))
	assert.Equal(t, int64(7), cfg.CoreConfig().Telegram.AdminID)
}

func TestLoadReadsJioAndDatabase(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	cfg, err := Load(writeConfig(t, `
telegram:
  token: abc
database:
  host: db
  name: supper
  user: bot
jio:
  window: 2h
  delivery_cents: 450
  gst_rate: "0.09"
`))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 2*time.Hour, cfg.Jio.Window)
	assert.Equal(t, int64(450), cfg.Jio.DeliveryCents)
	assert.True(t, decimal.RequireFromString("0.09").Equal(cfg.Jio.Rate()))
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"postgres without host": "telegram: {token: abc}\nstorage: {driver: postgres}\n",
		"unknown driver":        "telegram: {token: abc}\nstorage: {driver: dynamo}\n",
		"negative delivery":     "telegram: {token: abc}\njio: {delivery_cents: -1}\n",
		"bad gst":               "telegram: {token: abc}\njio: {gst_rate: seven}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMenusRejectsMissingFile(t *testing.T) {
	set, err := LoadMenus(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Al Amaan"}, set.Names())

	_, err = LoadMenus([]string{filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func memoryApp(t *testing.T) *App {
	t.Helper()
	cfg := &Config{
		Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "abc", AdminID: 7}},
	}
	cfg.Storage.Driver = DriverMemory
	cfg.Jio.Window = jio.DefaultWindow

	var got bootstrap.Options
	a, err := New(context.Background(), cfg, Options{
		Bootstrap: func(_ context.Context, o bootstrap.Options) (*bootstrap.Result, error) {
			got = o
			return &bootstrap.Result{}, nil
		},
	})
	require.NoError(t, err)
	assert.Nil(t, got.Database)
	return a
}

func TestNewWithMemoryStorage(t *testing.T) {
	a := memoryApp(t)
	require.NotNil(t, a.Service())
	assert.Equal(t, []string{"Al Amaan"}, a.Service().Establishments())
	assert.NoError(t, a.Close())
}

func TestTelegramRunOptionsSetupRegistersRoutes(t *testing.T) {
	a := memoryApp(t)
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Setup)
	assert.NotEmpty(t, opts.Middlewares)

	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	routes, err := opts.Setup(context.Background(), coretelegram.Runtime{Bot: b, Registry: opts.Registry})
	require.NoError(t, err)
	assert.Len(t, routes, 11)
	assert.Len(t, opts.Registry.ListCommands(true), 7)
}
