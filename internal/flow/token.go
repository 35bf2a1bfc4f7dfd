// Package flow encodes multi-step chat dialogues as self-describing tokens.
//
// A token is the wire string `command "_" chat_id ("_" index)*` carried in
// inline-button callback data. Everything needed to render the next step is
// derived from the token alone, so any process can pick the dialogue up.
package flow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command names the dialogue a token belongs to.
type Command string

const (
	CommandOpenJio    Command = "openjio"
	CommandAddItem    Command = "additem"
	CommandRemoveItem Command = "removeitem"
	CommandCancel     Command = "cancel"
)

const sep = "_"

// ErrMalformedToken is returned when a token cannot be decoded.
var ErrMalformedToken = errors.New("flow: malformed token")

func (c Command) valid() bool {
	switch c {
	case CommandOpenJio, CommandAddItem, CommandRemoveItem, CommandCancel:
		return true
	}
	return false
}

// Token is the decoded form of a dialogue continuation.
type Token struct {
	Command Command
	ChatID  int64
	Path    []int
}

// New starts a dialogue for chatID with no selections.
func New(cmd Command, chatID int64) Token {
	return Token{Command: cmd, ChatID: chatID}
}

// Cancel is the chat-less token that ends any dialogue.
func Cancel() Token {
	return Token{Command: CommandCancel}
}

// Parse decodes a wire token.
func Parse(raw string) (Token, error) {
	parts := strings.Split(strings.TrimSpace(raw), sep)
	cmd := Command(parts[0])
	if !cmd.valid() {
		return Token{}, fmt.Errorf("%w: unknown command %q", ErrMalformedToken, parts[0])
	}
	if cmd == CommandCancel {
		return Cancel(), nil
	}
	if len(parts) < 2 {
		return Token{}, fmt.Errorf("%w: %q has no chat id", ErrMalformedToken, raw)
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: chat id %q", ErrMalformedToken, parts[1])
	}
	t := Token{Command: cmd, ChatID: chatID}
	for _, p := range parts[2:] {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return Token{}, fmt.Errorf("%w: selection %q", ErrMalformedToken, p)
		}
		t.Path = append(t.Path, idx)
	}
	return t, nil
}

// String encodes the token for the transport.
func (t Token) String() string {
	if t.Command == CommandCancel {
		return string(CommandCancel)
	}
	var b strings.Builder
	b.WriteString(string(t.Command))
	b.WriteString(sep)
	b.WriteString(strconv.FormatInt(t.ChatID, 10))
	for _, idx := range t.Path {
		b.WriteString(sep)
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Stage is the number of selections already made.
func (t Token) Stage() int { return len(t.Path) }

// Append returns a copy of t with one more selection.
func (t Token) Append(idx int) Token {
	path := make([]int, len(t.Path), len(t.Path)+1)
	copy(path, t.Path)
	t.Path = append(path, idx)
	return t
}

// Back returns t without its last selection. It reports false at stage 0.
func (t Token) Back() (Token, bool) {
	if len(t.Path) == 0 {
		return t, false
	}
	path := make([]int, len(t.Path)-1)
	copy(path, t.Path)
	t.Path = path
	return t, true
}
