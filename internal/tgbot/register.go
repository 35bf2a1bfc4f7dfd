package tgbot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supperbot/core/telegram"
	"github.com/m3rciful/supperbot/core/telegram/commands"
	"github.com/m3rciful/supperbot/core/telegram/middleware"
	"github.com/m3rciful/supperbot/core/telegram/router"
	"github.com/m3rciful/supperbot/internal/bot"
	"github.com/m3rciful/supperbot/internal/flow"
)

type commandDef struct {
	name string
	cmd  commands.Command
}

// Register puts the jio commands and flow callbacks into reg. Unknown
// commands and unknown callback keys are handed to the controller too, so
// it can answer them.
func Register(reg *tg.Registry, h *Handlers) error {
	defs := []commandDef{
		{"/" + bot.CommandStart, commands.Command{Handler: h.Command, Description: "Start a private chat with the bot"}},
		{"/" + bot.CommandOpenJio, commands.Command{Handler: h.Command, Description: "Start a Supper Jio"}},
		{"/" + bot.CommandCloseJio, commands.Command{Handler: h.Command, Description: "Close the Supper Jio and split the bill"}},
		{"/" + bot.CommandAddItem, commands.Command{Handler: h.Command, Description: "Add item to order"}},
		{"/" + bot.CommandRemoveItem, commands.Command{Handler: h.Command, Description: "Remove item from order"}},
		{"/" + bot.CommandViewOrder, commands.Command{Handler: h.Command, Description: "Check order"}},
		{"/" + bot.CommandCancel, commands.Command{Handler: h.Command, Description: "Cancel the current action"}},
		{"/version", commands.Command{Handler: h.Version, Description: "Show build version", AdminOnly: true, Hidden: true}},
	}

	var errs []error
	for _, d := range defs {
		errs = append(errs, reg.RegisterCommand(d.name, d.cmd))
	}
	for _, key := range []flow.Command{flow.CommandOpenJio, flow.CommandAddItem, flow.CommandRemoveItem, flow.CommandCancel} {
		errs = append(errs, reg.RegisterCallback(string(key), h.Callback))
	}
	reg.SetCallbackNotFound(h.Callback)
	reg.SetUnknownCommand(h.Command)
	return errors.Join(errs...)
}

// Routes binds everything in reg plus the membership updates. adminID
// guards admin-only commands; onReject answers a refused caller.
func Routes(reg *tg.Registry, h *Handlers, adminID int64, onReject tele.HandlerFunc) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       adminID,
		OnAdminReject: onReject,
	})
	routes = append(routes, router.CallbackRoute(reg))
	routes = append(routes, router.TextRoutes(reg)...)
	return append(routes, tg.Route{
		Endpoint: tele.OnMyChatMember,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h.Membership)),
	})
}
