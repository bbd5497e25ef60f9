package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGPromoNFTBot/internal/service"
)

// Outgoing is one chat message. Text is HTML.
type Outgoing struct {
	ChatID         int64
	Text           string
	Keyboard       *tgbotapi.InlineKeyboardMarkup
	DisablePreview bool
}

type Messenger interface {
	Send(ctx context.Context, out Outgoing) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// APIMessenger sends through the Bot API.
type APIMessenger struct {
	api *tgbotapi.BotAPI
}

func NewMessenger(api *tgbotapi.BotAPI) *APIMessenger {
	return &APIMessenger{api: api}
}

func (m *APIMessenger) Send(ctx context.Context, out Outgoing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = out.DisablePreview
	if out.Keyboard != nil {
		msg.ReplyMarkup = *out.Keyboard
	}
	if _, err := m.api.Send(msg); err != nil {
		return classifySendError(err)
	}
	return nil
}

// SendText lets the messenger serve as a broadcast sender.
func (m *APIMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	return m.Send(ctx, Outgoing{ChatID: chatID, Text: text})
}

func (m *APIMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// classifySendError maps a 403 from the Bot API onto ErrRecipientBlocked.
func classifySendError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", service.ErrRecipientBlocked, apiErr.Message)
	}
	var apiErrValue tgbotapi.Error
	if errors.As(err, &apiErrValue) && apiErrValue.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", service.ErrRecipientBlocked, apiErrValue.Message)
	}
	return fmt.Errorf("send message: %w", err)
}
