package router

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supperbot/core/logger"
	tg "github.com/m3rciful/supperbot/core/telegram"
	"github.com/m3rciful/supperbot/core/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command, wrapped with recovery,
// update logging, the handler summary and, where flagged, the admin check.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	names := reg.CommandNames()
	routes := make([]tg.Route, 0, len(names))
	for _, cmd := range names {
		_, def, _ := reg.LookupCommand(cmd)
		name, inner := routeName(cmd), def.Handler
		h := func(c tele.Context) error {
			return handled(c, name, time.Now(), func() error { return inner(c) })
		}
		if def.AdminOnly {
			h = adminOnly(h)
		}
		h = middleware.LoggerMiddleware(h)
		h = middleware.RecoverMiddleware(h)
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
	}

	logger.Info(context.Background(), "tg.wire", "wire.complete",
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
