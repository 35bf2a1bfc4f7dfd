package tgbot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supperbot/core/buildinfo"
	"github.com/m3rciful/supperbot/core/logger"
	tghelpers "github.com/m3rciful/supperbot/core/telegram/helpers"
	"github.com/m3rciful/supperbot/internal/bot"
)

const component = "tgbot"

// Handlers adapts telebot handlers to the controller.
type Handlers struct {
	ctrl *bot.Controller
}

// NewHandlers returns telebot handlers driving ctrl.
func NewHandlers(ctrl *bot.Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// Command handles every slash command, registered or not.
func (h *Handlers) Command(c tele.Context) error {
	ev := eventFrom(c)
	ev.Command = bot.CommandName(c.Text())
	return h.ctrl.Handle(h.context(c), ev)
}

// Callback handles a pressed inline button carrying a flow token.
func (h *Handlers) Callback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ev := eventFrom(c)
	ev.Token = cb.Data
	if cb.Unique != "" {
		ev.Token = cb.Unique + "_" + cb.Data
	}
	if ev.Token == "" {
		return nil
	}
	return h.ctrl.Handle(h.context(c), ev)
}

// Membership reports the bot joining or leaving a chat to the owner.
func (h *Handlers) Membership(c tele.Context) error {
	upd := c.ChatMember()
	if upd == nil || upd.NewChatMember == nil {
		return nil
	}
	ctx := h.context(c)
	ev := eventFrom(c)
	if upd.Chat != nil {
		ev.ChatID = upd.Chat.ID
		ev.ChatTitle = upd.Chat.Title
	}

	var old tele.MemberStatus
	if upd.OldChatMember != nil {
		old = upd.OldChatMember.Role
	}
	switch {
	case joined(upd.NewChatMember.Role) && !joined(old):
		logger.Info(ctx, component, "chat.added", slog.Int64("chat_id", ev.ChatID))
		return h.ctrl.BotAdded(ctx, ev)
	case gone(upd.NewChatMember.Role) && !gone(old):
		logger.Info(ctx, component, "chat.removed", slog.Int64("chat_id", ev.ChatID))
		return h.ctrl.BotRemoved(ctx, ev)
	}
	return nil
}

// Version replies with the build identity.
func (h *Handlers) Version(c tele.Context) error {
	return c.Send(buildinfo.String())
}

func (h *Handlers) context(c tele.Context) context.Context {
	return withUpdate(tghelpers.BuildContext(c), c)
}

func joined(role tele.MemberStatus) bool {
	switch role {
	case tele.Member, tele.Administrator, tele.Creator, tele.Restricted:
		return true
	}
	return false
}

func gone(role tele.MemberStatus) bool {
	return role == tele.Left || role == tele.Kicked
}

// eventFrom extracts the identity fields every controller event needs.
func eventFrom(c tele.Context) bot.Event {
	var ev bot.Event
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
		ev.ChatTitle = chat.Title
		ev.Private = chat.Type == tele.ChatPrivate
	}
	if user := c.Sender(); user != nil {
		ev.UserID = user.ID
		ev.FirstName = user.FirstName
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		ev.MessageID = cb.Message.ID
	}
	return ev
}
