package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/supperbot/core/config"
	"github.com/m3rciful/supperbot/core/logger"
	tghelpers "github.com/m3rciful/supperbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/supperbot/core/telegram/sender"
)

const component = "tg"

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// Setup runs once the bot exists and before routes are bound. It may
	// fill the registry and return routes that need the live bot.
	Setup func(ctx context.Context, rt Runtime) ([]Route, error)

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot from opts, binds middlewares and routes, and
// serves updates until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	began := time.Now()
	bot, err := newBot(ctx, opts.Config)
	if err != nil {
		return err
	}

	rt := Runtime{Bot: bot, Dispatcher: opts.Dispatcher, Registry: opts.Registry}
	if rt.Dispatcher == nil {
		rt.Dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
	}
	release := func() {
		rt.Dispatcher.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	announceMode(ctx, bot, time.Since(began), !opts.DisableWebhookCleanup)

	if err := bind(ctx, rt, opts); err != nil {
		release()
		return err
	}
	InitBotCommands(ctx, bot, rt.Registry)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()
	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
		if err := ctx.Err(); !errors.Is(err, context.Canceled) {
			runErr = err
		}
	case <-stopped:
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			runErr = err
		}
	}
	release()
	return runErr
}

func newBot(ctx context.Context, cfg *coreconfig.Config) (*tele.Bot, error) {
	popts := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: BuildPoller(popts),
		Client: BuildHTTPClient(popts.LongPollTimeout()),
		OnError: func(err error, c tele.Context) {
			lctx := ctx
			if c != nil {
				lctx = tghelpers.BuildContext(c)
			}
			logger.Error(lctx, component, "handler.error", slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

// announceMode logs how updates arrive. A long-polling bot also drops any
// webhook left from an earlier deployment, since Telegram refuses
// getUpdates while one is set.
func announceMode(ctx context.Context, bot *tele.Bot, took time.Duration, cleanup bool) {
	switch p := bot.Poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, component, "mode",
			slog.String("mode", RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
	case *tele.LongPoller:
		logger.Info(ctx, component, "mode",
			slog.String("mode", RunModeLongpoll),
			slog.Duration("poll_timeout", p.Timeout),
			slog.Duration("duration", took),
		)
		if !cleanup {
			return
		}
		if err := bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, component, "delete_webhook", slog.String("status", "fail"), slog.String("err", err.Error()))
			return
		}
		logger.Info(ctx, component, "delete_webhook", slog.String("status", "ok"))
	}
}

// bind runs Setup, then installs middlewares and every non-empty route.
func bind(ctx context.Context, rt Runtime, opts RunOptions) error {
	routes := append([]Route(nil), opts.Routes...)
	if opts.Setup != nil {
		extra, err := opts.Setup(ctx, rt)
		if err != nil {
			return fmt.Errorf("telegram: setup failed: %w", err)
		}
		routes = append(routes, extra...)
	}
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			rt.Bot.Use(mw.Use)
		}
	}
	bound := 0
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			rt.Bot.Handle(r.Endpoint, r.Handler)
			bound++
		}
	}
	logger.Debug(ctx, "tg.wire", "routes.bound", slog.Int("count", bound))
	return nil
}
