package bot

import "context"

//go:generate mockgen -source=messenger.go -destination=mocks/messenger_mock.go -package=mocks

// Button is one inline keyboard button: callback Data or a URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// Messenger is the outbound side of the chat transport. Every text is sent
// with legacy Markdown parse mode.
type Messenger interface {
	// Send posts a new message. An error means it was not delivered, for
	// example because the user never opened a private chat with the bot.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) error
	// Edit replaces the text and keyboard of a message the bot sent.
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	// Notify queues a best-effort message without waiting for delivery.
	Notify(ctx context.Context, chatID int64, text string) error
}
