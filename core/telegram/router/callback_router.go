package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supperbot/core/telegram"
	"github.com/m3rciful/supperbot/core/telegram/callbacks"
	"github.com/m3rciful/supperbot/core/telegram/middleware"
)

// CallbackRoute returns the single OnCallback route. It answers the button
// press, resolves the handler by routing key and falls back to the
// registry's not-found handler.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + routeName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			extras = append(extras, slog.String("reason", "not_found"))
			cbHandler = reg.CallbackNotFound()
		}
		return handled(c, name, start, func() error {
			if cbHandler == nil {
				return nil
			}
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
