package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"housebot/internal/bot"
)

func convertUser(u *tgbotapi.User) bot.User {
	if u == nil {
		return bot.User{}
	}
	return bot.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}

func chatKind(c *tgbotapi.Chat) bot.ChatKind {
	if c == nil {
		return ""
	}
	return bot.ChatKind(c.Type)
}

// convertMessage keeps text messages that have a sender and a chat.
func convertMessage(m *tgbotapi.Message) (bot.Message, bool) {
	if m == nil || m.Chat == nil || m.From == nil || m.Text == "" {
		return bot.Message{}, false
	}
	return bot.Message{
		ChatID:    m.Chat.ID,
		ChatKind:  chatKind(m.Chat),
		MessageID: m.MessageID,
		From:      convertUser(m.From),
		Text:      m.Text,
	}, true
}

// convertCallback keeps callbacks attached to a message the bot can delete.
func convertCallback(q *tgbotapi.CallbackQuery) (bot.Callback, bool) {
	if q == nil || q.Message == nil || q.Message.Chat == nil {
		return bot.Callback{}, false
	}
	return bot.Callback{
		ID:        q.ID,
		ChatID:    q.Message.Chat.ID,
		ChatKind:  chatKind(q.Message.Chat),
		MessageID: q.Message.MessageID,
		From:      convertUser(q.From),
		Data:      q.Data,
	}, true
}

func replyMarkup(m *bot.Markup) any {
	switch {
	case m == nil:
		return nil
	case len(m.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Inline))
		for _, row := range m.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	case len(m.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Keyboard))
		for _, row := range m.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	default:
		return nil
	}
}
