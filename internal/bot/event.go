// Package bot is the jio controller: it turns inbound commands and flow
// tokens into jio operations and replies through a Messenger.
package bot

import "strings"

// Command names accepted from group chats.
const (
	CommandStart      = "start"
	CommandOpenJio    = "openjio"
	CommandCloseJio   = "closejio"
	CommandAddItem    = "additem"
	CommandRemoveItem = "removeitem"
	CommandViewOrder  = "vieworder"
	CommandCancel     = "cancel"
)

// Event is what the controller needs from an inbound update. Exactly one of
// Command or Token is set.
type Event struct {
	// Command is the bot command without slash or @botname suffix.
	Command string
	// Token is the callback data of a pressed inline button.
	Token string

	ChatID    int64
	Private   bool
	ChatTitle string
	UserID    int64
	FirstName string
	// MessageID is the message carrying the pressed button.
	MessageID int
}

// CommandName normalises "/AddItem@supper_bot" to "additem".
func CommandName(text string) string {
	text = strings.TrimSpace(text)
	if fields := strings.Fields(text); len(fields) > 0 {
		text = fields[0]
	}
	text = strings.TrimPrefix(text, "/")
	if at := strings.IndexByte(text, '@'); at >= 0 {
		text = text[:at]
	}
	return strings.ToLower(text)
}
