// Package tgbot binds the jio controller to Telegram: it turns telebot
// updates into controller events and controller replies into API calls.
package tgbot

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/supperbot/core/telegram/helpers"
	"github.com/m3rciful/supperbot/core/telegram/keyboard"
	"github.com/m3rciful/supperbot/core/telegram/middleware"
	"github.com/m3rciful/supperbot/internal/bot"
)

// Messenger implements bot.Messenger on top of the Telegram Bot API.
type Messenger struct {
	api tghelpers.API
}

var _ bot.Messenger = (*Messenger)(nil)

// NewMessenger returns a Messenger sending through api, usually a *tele.Bot.
func NewMessenger(api tghelpers.API) *Messenger {
	return &Messenger{api: api}
}

// Send posts text to chatID and reports whether Telegram accepted it.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string, kb bot.Keyboard) error {
	rm := markup(kb)
	if err := tghelpers.SendMD(ctx, m.api, tele.ChatID(chatID), text, rm); err != nil {
		return err
	}
	countMessage(ctx, rm != nil)
	return nil
}

// Edit rewrites a message the bot sent earlier. An empty kb removes the
// buttons.
func (m *Messenger) Edit(ctx context.Context, chatID int64, messageID int, text string, kb bot.Keyboard) error {
	rm := markup(kb)
	msg := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	if err := tghelpers.EditMD(ctx, m.api, msg, text, rm); err != nil {
		return err
	}
	countMessage(ctx, rm != nil)
	return nil
}

// Notify queues text for chatID on the sender dispatcher.
func (m *Messenger) Notify(ctx context.Context, chatID int64, text string) error {
	return tghelpers.NotifyMD(ctx, m.api, tele.ChatID(chatID), text)
}

func markup(kb bot.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Text, Data: b.Data, URL: b.URL})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

type updateKey struct{}

// withUpdate remembers the telebot context so replies count towards the
// handler summary of the update that caused them.
func withUpdate(ctx context.Context, c tele.Context) context.Context {
	return context.WithValue(ctx, updateKey{}, c)
}

func countMessage(ctx context.Context, hasKB bool) {
	if c, ok := ctx.Value(updateKey{}).(tele.Context); ok {
		middleware.CountMessage(c, hasKB)
	}
}
