package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/internal/flow"
	"github.com/m3rciful/supperbot/internal/jio"
	"github.com/m3rciful/supperbot/internal/menu"
)

const component = "bot"

// Options carries deployment settings the controller needs.
type Options struct {
	// OwnerID receives membership notifications; 0 disables them.
	OwnerID int64
	// BotURL is the t.me link on the "Start chat!" button.
	BotURL string
	// Delivery is the fee in cents fixed on every new jio.
	Delivery int64
	// Escape renders user-supplied names safe for Markdown.
	Escape func(string) string
}

// Controller handles one inbound event at a time and keeps no state between
// events; dialogue progress lives in the flow token.
type Controller struct {
	jios  *jio.Service
	menus *menu.Set
	out   Messenger
	open  flow.OpenFlow
	opts  Options
}

// NewController wires the controller. The open flow offers the establishments
// of menus in order.
func NewController(jios *jio.Service, menus *menu.Set, out Messenger, opts Options) *Controller {
	if opts.Delivery <= 0 {
		opts.Delivery = jio.DefaultDelivery
	}
	if opts.Escape == nil {
		opts.Escape = func(s string) string { return s }
	}
	return &Controller{
		jios:  jios,
		menus: menus,
		out:   out,
		open:  openQuestions(menus.Names()),
		opts:  opts,
	}
}

// Handle dispatches ev to the command or callback it carries.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	if ev.Token != "" {
		return c.Callback(ctx, ev)
	}
	if ev.Private {
		return c.out.Send(ctx, ev.ChatID, MessageSendToGroup, nil)
	}
	switch ev.Command {
	case CommandStart:
		return c.Start(ctx, ev)
	case CommandOpenJio:
		return c.OpenJio(ctx, ev)
	case CommandCloseJio:
		return c.CloseJio(ctx, ev)
	case CommandAddItem:
		return c.AddItem(ctx, ev)
	case CommandRemoveItem:
		return c.RemoveItem(ctx, ev)
	case CommandViewOrder:
		return c.ViewOrder(ctx, ev)
	case CommandCancel:
		return c.Cancel(ctx, ev)
	default:
		return c.Unknown(ctx, ev)
	}
}

// Start points the group at the bot's private chat.
func (c *Controller) Start(ctx context.Context, ev Event) error {
	return c.out.Send(ctx, ev.ChatID, MessageStartChat, c.startKeyboard())
}

// OpenJio begins the open flow in the user's private chat.
func (c *Controller) OpenJio(ctx context.Context, ev Event) error {
	j, err := c.jios.Exists(ctx, ev.ChatID)
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	if j != nil {
		return c.out.Send(ctx, ev.ChatID, MessageJioExists, nil)
	}
	st, err := c.open.Next(flow.New(flow.CommandOpenJio, ev.ChatID))
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	return c.sendPrivate(ctx, ev, st.Prompt, stepKeyboard(st))
}

// CloseJio settles the jio, broadcasts the summary to the group and sends
// every participant their bill.
func (c *Controller) CloseJio(ctx context.Context, ev Event) error {
	j, err := c.jios.Exists(ctx, ev.ChatID)
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	if j == nil {
		return c.out.Send(ctx, ev.ChatID, MessageNoJio, nil)
	}
	res, err := c.jios.Close(ctx, j, ev.UserID)
	switch {
	case errors.Is(err, jio.ErrNotStarter):
		return c.out.Send(ctx, ev.ChatID, MessageNotJioStarter, nil)
	case errors.Is(err, jio.ErrNoJio):
		return c.out.Send(ctx, ev.ChatID, MessageNoJio, nil)
	case err != nil:
		return c.failGroup(ctx, ev, err)
	}

	if err := c.out.Send(ctx, ev.ChatID, res.Summary, nil); err != nil {
		return err
	}
	var errs []error
	for _, share := range res.Shares {
		userID, err := strconv.ParseInt(share.ID, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("participant %q: %w", share.ID, err))
			continue
		}
		if err := c.out.Notify(ctx, userID, res.Private[share.ID]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddItem begins the item flow for the jio's establishment.
func (c *Controller) AddItem(ctx context.Context, ev Event) error {
	j, err := c.jios.Exists(ctx, ev.ChatID)
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	if j == nil {
		return c.out.Send(ctx, ev.ChatID, MessageNoJio, nil)
	}
	st, err := c.browse(flow.New(flow.CommandAddItem, ev.ChatID), j)
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	return c.sendPrivate(ctx, ev, st.Prompt, stepKeyboard(st))
}

// RemoveItem lists the user's items so one can be picked for removal.
func (c *Controller) RemoveItem(ctx context.Context, ev Event) error {
	j, err := c.jios.Exists(ctx, ev.ChatID)
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	if j == nil {
		return c.out.Send(ctx, ev.ChatID, MessageNoJio, nil)
	}
	items := j.Items(ev.UserID)
	if len(items) == 0 {
		return c.out.Send(ctx, ev.ChatID, MessageNoItems, nil)
	}
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, itemChoice(it))
	}
	kb := append(optionRows(flow.Options(flow.New(flow.CommandRemoveItem, ev.ChatID), labels)), cancelRow())
	return c.sendPrivate(ctx, ev, MessageChooseRemoval, kb)
}

// ViewOrder posts the running order to the group.
func (c *Controller) ViewOrder(ctx context.Context, ev Event) error {
	j, err := c.jios.Exists(ctx, ev.ChatID)
	if err != nil {
		return c.failGroup(ctx, ev, err)
	}
	if j == nil {
		return c.out.Send(ctx, ev.ChatID, MessageNoJio, nil)
	}
	return c.out.Send(ctx, ev.ChatID, "Items ordered:\n\n"+c.jios.OrderSummary(j), nil)
}

// Cancel acknowledges a typed /cancel; committed changes stay.
func (c *Controller) Cancel(ctx context.Context, ev Event) error {
	return c.out.Send(ctx, ev.ChatID, MessageCancelled, nil)
}

// Unknown tells the sender privately that the command is not supported.
func (c *Controller) Unknown(ctx context.Context, ev Event) error {
	logger.Debug(ctx, component, "command.unknown", slog.String("command", logger.SanitizeLimit(ev.Command, 64)))
	return c.out.Send(ctx, ev.UserID, MessageInvalidCommand, nil)
}

// Callback advances the dialogue encoded in ev.Token by editing the message
// that carried the pressed button.
func (c *Controller) Callback(ctx context.Context, ev Event) error {
	tok, err := flow.Parse(ev.Token)
	if err != nil {
		logger.Warn(ctx, component, "flow.decode",
			slog.String("payload", logger.SanitizeLimit(ev.Token, 128)),
			slog.String("err", err.Error()),
		)
		return c.edit(ctx, ev, MessageError, nil)
	}
	logger.Debug(ctx, component, "flow.decode",
		slog.String("op", string(tok.Command)),
		slog.Int("stage", tok.Stage()),
	)

	switch tok.Command {
	case flow.CommandCancel:
		return c.edit(ctx, ev, MessageCancelled, nil)
	case flow.CommandOpenJio:
		return c.openStep(ctx, ev, tok)
	case flow.CommandAddItem:
		return c.itemStep(ctx, ev, tok)
	case flow.CommandRemoveItem:
		return c.removeStep(ctx, ev, tok)
	}
	return c.failEdit(ctx, ev, fmt.Errorf("%w: unhandled command %q", flow.ErrMalformedToken, tok.Command))
}

func (c *Controller) openStep(ctx context.Context, ev Event, tok flow.Token) error {
	j, err := c.jios.Exists(ctx, tok.ChatID)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	if j != nil {
		return c.edit(ctx, ev, MessageJioExistsPrivate, nil)
	}
	st, err := c.open.Next(tok)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	if st.Kind == flow.KindPrompt {
		return c.edit(ctx, ev, st.Prompt, stepKeyboard(st))
	}

	params, err := jio.ParamsFromSelections(c.menus.Names(), st.Selections, c.opts.Delivery)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	created, err := c.jios.Create(ctx, tok.ChatID, ev.UserID, params)
	if errors.Is(err, jio.ErrJioExists) {
		return c.edit(ctx, ev, MessageJioExistsPrivate, nil)
	}
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	if err := c.edit(ctx, ev, MessageJioStarted, nil); err != nil {
		logger.Warn(ctx, component, "jio.started.edit", slog.String("err", err.Error()))
	}
	return c.out.Send(ctx, tok.ChatID, announcement(c.opts.Escape, ev.FirstName, created), nil)
}

func (c *Controller) itemStep(ctx context.Context, ev Event, tok flow.Token) error {
	j, err := c.jios.Exists(ctx, tok.ChatID)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	if j == nil {
		return c.edit(ctx, ev, MessageNoJioPrivate, nil)
	}
	st, err := c.browse(tok, j)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	if st.Kind == flow.KindPrompt {
		return c.edit(ctx, ev, st.Prompt, stepKeyboard(st))
	}

	item := jio.Item{Name: st.Item.Name, Price: st.Item.Price}
	err = c.jios.AddItem(ctx, j, ev.UserID, ev.FirstName, item)
	if errors.Is(err, jio.ErrNoJio) {
		return c.edit(ctx, ev, MessageNoJioPrivate, nil)
	}
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	kb := Keyboard{{
		{Text: buttonAddAnother, Data: flow.New(flow.CommandAddItem, tok.ChatID).String()},
		{Text: buttonCancel, Data: flow.Cancel().String()},
	}}
	return c.edit(ctx, ev, itemAdded(c.opts.Escape, item), kb)
}

func (c *Controller) removeStep(ctx context.Context, ev Event, tok flow.Token) error {
	idx, err := flow.RemoveIndex(tok)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	j, err := c.jios.Exists(ctx, tok.ChatID)
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	if j == nil {
		return c.edit(ctx, ev, MessageNoJioPrivate, nil)
	}
	err = c.jios.RemoveItem(ctx, j, ev.UserID, idx)
	switch {
	case errors.Is(err, jio.ErrItemIndex):
		return c.edit(ctx, ev, MessageItemGone, nil)
	case errors.Is(err, jio.ErrNoJio):
		return c.edit(ctx, ev, MessageNoJioPrivate, nil)
	}
	if err != nil {
		return c.failEdit(ctx, ev, err)
	}
	return c.edit(ctx, ev, MessageItemRemoved, nil)
}

// BotAdded tells the owner the bot joined a group.
func (c *Controller) BotAdded(ctx context.Context, ev Event) error {
	return c.notifyOwner(ctx, "Added to chat: "+c.chatLabel(ev))
}

// BotRemoved tells the owner the bot left a group.
func (c *Controller) BotRemoved(ctx context.Context, ev Event) error {
	return c.notifyOwner(ctx, "Removed from chat: "+c.chatLabel(ev))
}

func (c *Controller) notifyOwner(ctx context.Context, text string) error {
	if c.opts.OwnerID == 0 {
		return nil
	}
	return c.out.Send(ctx, c.opts.OwnerID, text, nil)
}

func (c *Controller) chatLabel(ev Event) string {
	if ev.ChatTitle != "" {
		return c.opts.Escape(ev.ChatTitle)
	}
	return strconv.FormatInt(ev.ChatID, 10)
}

func (c *Controller) browse(tok flow.Token, j *jio.Jio) (flow.Step, error) {
	catalog, ok := c.menus.Get(j.Establishment)
	if !ok {
		return flow.Step{}, fmt.Errorf("no menu for establishment %q", j.Establishment)
	}
	return flow.BrowseMenu(tok, catalog)
}

func (c *Controller) startKeyboard() Keyboard {
	if c.opts.BotURL == "" {
		return nil
	}
	return Keyboard{{{Text: buttonStartChat, URL: c.opts.BotURL}}}
}

// sendPrivate opens a dialogue in the user's private chat, falling back to
// asking them in the group to start one.
func (c *Controller) sendPrivate(ctx context.Context, ev Event, text string, kb Keyboard) error {
	err := c.out.Send(ctx, ev.UserID, text, kb)
	if err == nil {
		return nil
	}
	logger.Info(ctx, component, "dialogue.private_failed", slog.String("err", err.Error()))
	return c.out.Send(ctx, ev.ChatID, MessageStartChat, c.startKeyboard())
}

func (c *Controller) edit(ctx context.Context, ev Event, text string, kb Keyboard) error {
	return c.out.Edit(ctx, ev.ChatID, ev.MessageID, text, kb)
}

// failGroup reports err to the group and returns it for the handler log.
func (c *Controller) failGroup(ctx context.Context, ev Event, err error) error {
	if sendErr := c.out.Send(ctx, ev.ChatID, MessageError, nil); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

// failEdit reports err in the dialogue message and returns it for the
// handler log.
func (c *Controller) failEdit(ctx context.Context, ev Event, err error) error {
	if errors.Is(err, flow.ErrMalformedToken) || errors.Is(err, jio.ErrInvalidParams) {
		logger.Warn(ctx, component, "flow.decode",
			slog.String("payload", logger.SanitizeLimit(ev.Token, 128)),
			slog.String("err", err.Error()),
		)
	}
	if editErr := c.edit(ctx, ev, MessageError, nil); editErr != nil {
		return errors.Join(err, editErr)
	}
	return err
}
