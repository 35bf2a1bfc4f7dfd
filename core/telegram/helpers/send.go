package helpers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/core/telegram/sender"
)

// API is the part of *tele.Bot the send helpers use.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by NotifyMD.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// sendAsync hands run to the dispatcher, or runs it inline when there is no
// dispatcher or its queue cannot take the job.
func sendAsync(ctx context.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func markdown(rm *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm}
}

// SendMD posts text with Markdown parse mode and waits for the result, so
// callers learn when the chat is unreachable.
func SendMD(ctx context.Context, api API, to tele.Recipient, text string, rm *tele.ReplyMarkup) error {
	start := time.Now()
	_, err := api.Send(to, text, markdown(rm))
	if err != nil {
		logger.Debug(ctx, "tg.sender", "send.fail",
			slog.String("endpoint", "sendMessage"),
			slog.String("recipient", to.Recipient()),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return err
}

// EditMD replaces the text and inline keyboard of msg. A nil rm removes the
// keyboard. Editing to identical content is not an error.
func EditMD(ctx context.Context, api API, msg tele.Editable, text string, rm *tele.ReplyMarkup) error {
	_, err := api.Edit(msg, text, markdown(rm))
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		logger.Debug(ctx, "tg.sender", "edit.unchanged")
		return nil
	}
	return err
}

// NotifyMD queues a Markdown message on the dispatcher; delivery failures
// are retried and logged there, not returned.
func NotifyMD(ctx context.Context, api API, to tele.Recipient, text string) error {
	return sendAsync(ctx, "notify", "sendMessage", func() error {
		_, err := api.Send(to, text, markdown(nil))
		return err
	})
}
