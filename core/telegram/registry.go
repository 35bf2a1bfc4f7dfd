package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/core/telegram/commands"
)

const wireComponent = "tg.wire"

var (
	errInvalidCommand  = errors.New("invalid command registration")
	errInvalidCallback = errors.New("invalid callback registration")
)

// Registry is the routing table filled during setup: slash commands keyed
// by "/name", callbacks keyed by their routing key, and the two fallbacks.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	unknownCommand   tele.HandlerFunc
}

// NewRegistry returns an empty registry whose callback fallback answers
// "Unsupported action".
func NewRegistry() *Registry {
	return &Registry{
		commands:  map[string]commands.Command{},
		callbacks: map[string]tele.HandlerFunc{},
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func rejectRegistration(event, key string, err error) error {
	logger.Warn(context.Background(), wireComponent, event,
		slog.String("name", key),
		slog.String("err", err.Error()),
	)
	return err
}

// RegisterCommand adds name, which must start with "/". Handler and
// Description are required; names are unique.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		return rejectRegistration("register.command.skip", name, errInvalidCommand)
	case !strings.HasPrefix(name, "/"):
		return rejectRegistration("register.command.skip", name, fmt.Errorf("command %q must start with /", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		return rejectRegistration("register.command.duplicate", name, fmt.Errorf("command already registered: %s", name))
	}
	r.commands[name] = cmd
	return nil
}

// CommandNames returns every registered "/name" in order.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.commands))
}

// LookupCommand finds a command by name with or without the slash.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return name, cmd, ok
}

// ListCommands returns commands in name order for the Telegram menu.
// visibleOnly drops hidden and admin-only entries.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var out []tele.Command
	for _, name := range r.CommandNames() {
		_, cmd, _ := r.LookupCommand(name)
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		out = append(out, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	return out
}

// RegisterCallback maps a routing key to its handler. Keys are unique.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return rejectRegistration("register.callback.skip", key, errInvalidCallback)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return rejectRegistration("register.callback.duplicate", key, fmt.Errorf("callback already registered: %s", key))
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the unknown-callback fallback; nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetUnknownCommand sets the handler for unregistered slash commands.
func (r *Registry) SetUnknownCommand(h tele.HandlerFunc) {
	r.mu.Lock()
	r.unknownCommand = h
	r.mu.Unlock()
}

func (r *Registry) UnknownCommand() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unknownCommand
}

// InitBotCommands publishes the visible commands as the bot's menu.
func InitBotCommands(ctx context.Context, bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(ctx, wireComponent, "register.commands.set_failed", slog.String("err", err.Error()))
		return
	}
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Text
	}
	summary, truncated := logger.SummarizeStrings(names, 10)
	logger.Info(ctx, wireComponent, "register.commands.set",
		slog.Int("count", len(list)),
		slog.String("commands", summary),
		slog.Bool("truncated", truncated),
	)
}
