package router

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/supperbot/core/telegram"
	"github.com/m3rciful/supperbot/core/telegram/middleware"
)

// TextRoutes handles text that reached OnText: commands telebot did not
// match (for example "/AddItem" in another case) are looked up in the
// registry, unknown slash commands go to the registry's unknown-command
// handler, and plain chatter is ignored.
func TextRoutes(reg *tg.Registry) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := strings.TrimSpace(c.Text())
		if !strings.HasPrefix(text, "/") {
			skipped(c, "text", start)
			return nil
		}

		name := commandWord(text)
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(name); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handled(c, routeName(key), start, func() error { return cmd.Handler(c) })
			}
			if fb := reg.UnknownCommand(); fb != nil {
				return handled(c, "unknown_command", start, func() error { return fb(c) })
			}
		}
		skipped(c, "unknown_command", start)
		return nil
	}

	return []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}}
}

// commandWord reduces "/AddItem@supper_bot extra" to "/additem".
func commandWord(text string) string {
	if fields := strings.Fields(text); len(fields) > 0 {
		text = fields[0]
	}
	if at := strings.IndexByte(text, '@'); at >= 0 {
		text = text[:at]
	}
	return strings.ToLower(text)
}
