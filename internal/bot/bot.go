package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Responder is a Messenger that can also acknowledge button presses
type Responder interface {
	Messenger
	AckPostback(ctx context.Context, callbackID string) error
}

// Bot routes webhook updates to the dispatcher and pushes the replies.
type Bot struct {
	dispatcher *Dispatcher
	messenger  Responder
	logger     *zap.Logger
}

func New(dispatcher *Dispatcher, messenger Responder, logger *zap.Logger) *Bot {
	return &Bot{
		dispatcher: dispatcher,
		messenger:  messenger,
		logger:     logger,
	}
}

// HandleUpdate processes one update. A returned error means no reply was sent.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	event := EventFromUpdate(update)
	if event == nil {
		b.logger.Debug("Ignoring update", zap.Int("update_id", update.UpdateID))
		return nil
	}
	return b.HandleEvent(ctx, event)
}

func (b *Bot) HandleEvent(ctx context.Context, event Event) error {
	switch ev := event.(type) {
	case MessageEvent:
		reply, err := b.dispatcher.Dispatch(ctx, ev.User, ev.Text)
		if err != nil {
			return fmt.Errorf("dispatch message: %w", err)
		}
		return b.send(ctx, ev.User, reply)
	case PostbackEvent:
		if ev.CallbackID != "" {
			if err := b.messenger.AckPostback(ctx, ev.CallbackID); err != nil {
				b.logger.Warn("Failed to acknowledge postback",
					zap.Error(err),
					zap.Int64("user_id", ev.User))
			}
		}
		reply, err := b.dispatcher.HandlePostback(ctx, ev.User, ev.Data, ev.Params)
		if err != nil {
			return fmt.Errorf("handle postback: %w", err)
		}
		return b.send(ctx, ev.User, reply)
	case UnfollowEvent:
		return b.dispatcher.HandleUnfollow(ctx, ev.User)
	default:
		return fmt.Errorf("unhandled event %T", event)
	}
}

func (b *Bot) send(ctx context.Context, userID int64, reply Reply) error {
	if reply.Picker != nil {
		if err := b.messenger.SendInteractive(ctx, userID, *reply.Picker); err != nil {
			return fmt.Errorf("send picker: %w", err)
		}
		return nil
	}
	if reply.Text == "" {
		return nil
	}
	if err := b.messenger.SendText(ctx, userID, reply.Text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}
