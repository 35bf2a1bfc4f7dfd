package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/supperbot/core/telegram/helpers"
)

const receivedKey = "update_logged"

// LoggerMiddleware writes one sampled update.received line per update. It
// is bound globally and again on routes, so a marker on c keeps the line
// single.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if logged, _ := c.Get(receivedKey).(bool); logged {
			return next(c)
		}
		c.Set(receivedKey, true)

		ctx := tghelpers.BuildContext(c)
		if !logger.ShouldSampleDebug() {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil && user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if cb := c.Callback(); cb != nil {
			key, payload := callbacks.ParseCallbackData(cb)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 128)),
				slog.String("payload", logger.SanitizeLimit(payload, 256)),
			)
		} else if text := c.Text(); text != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 256)))
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)
		return next(c)
	}
}
