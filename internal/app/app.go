// Package app assembles the bot from configuration: storage, menus, the jio
// service and the Telegram wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/supperbot/core/bootstrap"
	corecmd "github.com/m3rciful/supperbot/core/cmd"
	coredatabase "github.com/m3rciful/supperbot/core/database"
	"github.com/m3rciful/supperbot/core/logger"
	coretelegram "github.com/m3rciful/supperbot/core/telegram"
	"github.com/m3rciful/supperbot/core/telegram/format"
	"github.com/m3rciful/supperbot/internal/bot"
	"github.com/m3rciful/supperbot/internal/jio"
	"github.com/m3rciful/supperbot/internal/jio/memstore"
	"github.com/m3rciful/supperbot/internal/jio/pgstore"
	"github.com/m3rciful/supperbot/internal/menu"
	"github.com/m3rciful/supperbot/internal/tgbot"
)

// App is a bootstrapped bot ready to run.
type App struct {
	cfg   *Config
	infra *bootstrap.Result
	menus *menu.Set
	jios  *jio.Service
}

// Options lets tests replace infrastructure steps.
type Options struct {
	Bootstrap func(context.Context, bootstrap.Options) (*bootstrap.Result, error)
}

// New loads the menus, opens storage and builds the jio service.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	menus, err := LoadMenus(cfg.Jio.MenuFiles)
	if err != nil {
		return nil, err
	}

	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver == DriverPostgres {
		d := cfg.Database
		dbCfg = &d
	}
	run := opts.Bootstrap
	if run == nil {
		run = bootstrap.Run
	}
	infra, err := run(ctx, bootstrap.Options{Config: &cfg.Config, Database: dbCfg})
	if err != nil {
		return nil, err
	}

	var store jio.Store = memstore.New()
	if infra != nil && infra.DB != nil {
		store = pgstore.New(infra.DB)
	}
	svc := jio.NewService(store, menus.Names(),
		jio.WithWindow(cfg.Jio.Window),
		jio.WithGSTRate(cfg.Jio.Rate()),
		jio.WithEscaper(format.EscapeV1),
	)
	logger.Info(ctx, "app", "app.ready",
		slog.String("driver", cfg.Storage.Driver),
		slog.Int("establishments", len(menus.Names())),
	)
	return &App{cfg: cfg, infra: infra, menus: menus, jios: svc}, nil
}

// Bootstrap adapts New to the runner.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg, Options{})
}

// LoadConfig adapts Load to the runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return Load(path)
}

// LoadMenus returns the embedded catalog followed by the ones in files.
func LoadMenus(files []string) (*menu.Set, error) {
	catalogs := []*menu.Catalog{menu.Default()}
	for _, f := range files {
		c, err := menu.LoadFile(f)
		if err != nil {
			return nil, fmt.Errorf("app: menu %s: %w", f, err)
		}
		catalogs = append(catalogs, c)
	}
	return menu.NewSet(catalogs...), nil
}

// Service returns the jio service.
func (a *App) Service() *jio.Service {
	return a.jios
}

// TelegramRunOptions wires the controller once the bot exists.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := &a.cfg.Config
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    coretelegram.NewRegistry(),
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Setup: func(ctx context.Context, rt coretelegram.Runtime) ([]coretelegram.Route, error) {
			ctrl := bot.NewController(a.jios, a.menus, tgbot.NewMessenger(rt.Bot), a.controllerOptions())
			h := tgbot.NewHandlers(ctrl)
			if err := tgbot.Register(rt.Registry, h); err != nil {
				return nil, err
			}
			return tgbot.Routes(rt.Registry, h, core.Telegram.AdminID, nil), nil
		},
	}, nil
}

func (a *App) controllerOptions() bot.Options {
	return bot.Options{
		OwnerID:  a.cfg.Telegram.AdminID,
		BotURL:   a.cfg.Telegram.BotURL,
		Delivery: a.cfg.Jio.DeliveryCents,
		Escape:   format.EscapeV1,
	}
}

// Close releases storage.
func (a *App) Close() error {
	return a.infra.Close()
}
