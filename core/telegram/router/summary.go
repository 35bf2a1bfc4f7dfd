package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supperbot/core/logger"
	tghelpers "github.com/m3rciful/supperbot/core/telegram/helpers"
	"github.com/m3rciful/supperbot/core/telegram/middleware"
)

// handled runs fn as route name and writes the handler.handled line.
func handled(c tele.Context, name string, start time.Time, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, name)
	err := fn()
	status := "ok"
	if err != nil {
		status = "fail"
	}
	summarize(c, name, start, status, err, extras)
	return err
}

// skipped records an update the route looked at and ignored.
func skipped(c tele.Context, name string, start time.Time) {
	summarize(c, name, start, "skip", nil, nil)
}

func summarize(c tele.Context, name string, start time.Time, status string, err error, extras []slog.Attr) {
	ctx := tghelpers.WithHandler(c, name)
	msgs, kb := middleware.GetCounters(c)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}, extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}

// routeName turns "/AddItem" or "add item" into "additem" or "add_item".
func routeName(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(raw, " ", "_"))
}

// errCode prefers a Code() string anywhere in the chain, else the type
// name of the innermost error.
func errCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
		err = inner
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" && name != "errorString" {
		return strings.ToUpper(name)
	}
	return "UNKNOWN_ERROR"
}
