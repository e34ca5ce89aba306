// Package bot routes chat messages and inline keyboard callbacks to the
// building registry operations.
package bot

import "context"

// ChatKind is the transport's conversation type.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// Private reports whether the conversation is one-to-one with the bot.
func (k ChatKind) Private() bool { return k == ChatPrivate }

// User is the sender of a message or callback.
type User struct {
	ID        int64
	Username  string
	FirstName string
}

// DisplayName is the name recorded when users register themselves.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return "Unknown User"
	}
}

// Message is an inbound text message.
type Message struct {
	ChatID    int64
	ChatKind  ChatKind
	MessageID int
	From      User
	Text      string
}

// Callback is an inline keyboard selection.
type Callback struct {
	ID        string
	ChatID    int64
	ChatKind  ChatKind
	MessageID int
	From      User
	Data      string
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Markup attaches a keyboard to an outgoing message. Keyboard is a reply
// keyboard of command labels; Inline holds callback buttons.
type Markup struct {
	Keyboard [][]string
	Inline   [][]Button
}

// Messenger delivers replies through the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, markup *Markup) error
	SendImage(ctx context.Context, chatID int64, path, caption string) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
