// Package messenger pushes replies and deliveries to the chat platform.
package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/readlater-bot/internal/models"
	"go.uber.org/zap"
)

const pickerColumns = 4

type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Telegram{api: api, logger: logger}, nil
}

// NewTelegramWithEndpoint points the bot at a custom Bot API server
func NewTelegramWithEndpoint(token, endpoint string, client *http.Client, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Telegram{api: api, logger: logger}, nil
}

func (t *Telegram) SendText(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendInteractive renders the time picker as an inline keyboard
func (t *Telegram) SendInteractive(ctx context.Context, userID int64, picker models.TimePicker) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, option := range picker.Options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(option, models.EncodePostback(models.PostbackSetTime, option)))
		if len(row) == pickerColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(picker.PauseLabel, models.PostbackClearTime),
	))

	text := picker.Prompt
	if picker.PauseText != "" {
		text += "\n\n" + picker.PauseText
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send time picker: %w", err)
	}
	return nil
}

// AckPostback stops the loading indicator on the pressed button
func (t *Telegram) AckPostback(ctx context.Context, callbackID string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// RegisterWebhook points Telegram at url and asks it to send secret with every update
func (t *Telegram) RegisterWebhook(url, secret string) error {
	allowed, err := json.Marshal([]string{"message", "callback_query", "my_chat_member"})
	if err != nil {
		return err
	}
	params := tgbotapi.Params{
		"url":             url,
		"allowed_updates": string(allowed),
	}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := t.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	t.logger.Info("Webhook registered", zap.String("url", url))
	return nil
}
