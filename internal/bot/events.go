package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/readlater-bot/internal/models"
)

const statusKicked = "kicked"

// Event is an inbound update the bot reacts to
type Event interface {
	UserID() int64
}

type MessageEvent struct {
	User int64
	Text string
}

type PostbackEvent struct {
	User       int64
	CallbackID string
	Data       string
	Params     map[string]string
}

// UnfollowEvent is sent when the user blocks the bot
type UnfollowEvent struct {
	User int64
}

func (e MessageEvent) UserID() int64  { return e.User }
func (e PostbackEvent) UserID() int64 { return e.User }
func (e UnfollowEvent) UserID() int64 { return e.User }

// EventFromUpdate maps a Telegram update to an Event, or nil when the update is
// of no interest (group chats, stickers, edits).
func EventFromUpdate(update tgbotapi.Update) Event {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() || msg.Text == "" {
			return nil
		}
		return MessageEvent{User: msg.From.ID, Text: msg.Text}
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil {
			return nil
		}
		data, params := models.ParsePostback(cq.Data)
		return PostbackEvent{User: cq.From.ID, CallbackID: cq.ID, Data: data, Params: params}
	case update.MyChatMember != nil:
		member := update.MyChatMember
		if !member.Chat.IsPrivate() || member.NewChatMember.Status != statusKicked {
			return nil
		}
		return UnfollowEvent{User: member.From.ID}
	}
	return nil
}
