package bot

import (
	"context"
	"fmt"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Update is the neutral view of an incoming Telegram update that the
// handler and orchestrator work with. Keeping the wire types confined to
// the gateway makes the rest of the flow testable with fakes.
type Update struct {
	ChatID     int64
	Text       string
	WebAppData string
	Callback   *Callback
}

// Callback carries an inline-button press.
type Callback struct {
	ID        string
	Data      string
	ChatID    int64
	MessageID int
}

// Button is a single reply-keyboard button. URL, when set, opens the web
// app instead of sending the button text.
type Button struct {
	Text string
	URL  string
}

// Gateway wraps the Telegram Bot API client. Every outgoing call goes
// through retry with backoff and is counted in the send metrics.
type Gateway struct {
	client *tg.Bot
	logger zerolog.Logger
}

// NewGateway creates a Gateway around an existing Bot API client.
func NewGateway(client *tg.Bot) *Gateway {
	if client == nil {
		panic("bot: client must not be nil")
	}
	return &Gateway{
		client: client,
		logger: zerolog.New(nil).With().Str("component", "bot").Logger(),
	}
}

// SetLogger replaces the gateway logger.
func (g *Gateway) SetLogger(logger zerolog.Logger) {
	g.logger = logger.With().Str("component", "bot").Logger()
}

// SendMessage sends a plain text message.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	return g.send(ctx, "message", func() error {
		_, err := g.client.SendMessage(ctx, &tg.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		return err
	})
}

// SendMenuKeyboard sends a message with a persistent reply keyboard, one
// button per row.
func (g *Gateway) SendMenuKeyboard(ctx context.Context, chatID int64, text string, buttons []Button) error {
	rows := make([][]models.KeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		btn := models.KeyboardButton{Text: b.Text}
		if b.URL != "" {
			btn.WebApp = &models.WebAppInfo{URL: b.URL}
		}
		rows = append(rows, []models.KeyboardButton{btn})
	}

	return g.send(ctx, "menu", func() error {
		_, err := g.client.SendMessage(ctx, &tg.SendMessageParams{
			ChatID: chatID,
			Text:   text,
			ReplyMarkup: &models.ReplyKeyboardMarkup{
				Keyboard:       rows,
				ResizeKeyboard: true,
			},
		})
		return err
	})
}

// SendOrderConfirmation sends the order summary with confirm and
// change-address inline buttons and returns the message id so the buttons
// can be removed once the order is resolved.
func (g *Gateway) SendOrderConfirmation(ctx context.Context, chatID int64, text, confirmData, changeAddressData string) (int, error) {
	markup := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Confirm order", CallbackData: confirmData},
			},
			{
				{Text: "Change shipping address", CallbackData: changeAddressData},
			},
		},
	}

	var messageID int
	err := g.send(ctx, "confirmation", func() error {
		msg, err := g.client.SendMessage(ctx, &tg.SendMessageParams{
			ChatID:      chatID,
			Text:        text,
			ReplyMarkup: markup,
		})
		if err != nil {
			return err
		}
		messageID = msg.ID
		return nil
	})
	return messageID, err
}

// AnswerCallback acknowledges an inline-button press with an optional
// toast text.
func (g *Gateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return g.send(ctx, "callback_answer", func() error {
		_, err := g.client.AnswerCallbackQuery(ctx, &tg.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		})
		return err
	})
}

// RemoveInlineKeyboard strips the inline buttons from a previously sent
// message.
func (g *Gateway) RemoveInlineKeyboard(ctx context.Context, chatID int64, messageID int) error {
	return g.send(ctx, "keyboard_removal", func() error {
		_, err := g.client.EditMessageReplyMarkup(ctx, &tg.EditMessageReplyMarkupParams{
			ChatID:      chatID,
			MessageID:   messageID,
			ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
		})
		return err
	})
}

// AnswerWebAppQuery posts the given text into the chat on behalf of the
// web app that issued queryID.
func (g *Gateway) AnswerWebAppQuery(ctx context.Context, queryID, text string) error {
	return g.send(ctx, "web_app_answer", func() error {
		_, err := g.client.AnswerWebAppQuery(ctx, &tg.AnswerWebAppQueryParams{
			WebAppQueryID: queryID,
			Result: &models.InlineQueryResultArticle{
				ID:    queryID,
				Title: "Order received",
				InputMessageContent: &models.InputTextMessageContent{
					MessageText: text,
				},
			},
		})
		return err
	})
}

func (g *Gateway) send(ctx context.Context, kind string, fn func() error) error {
	err := retryWithBackoff(ctx, kind, fn)
	if err != nil {
		botSends.WithLabelValues(kind, "error").Inc()
		g.logger.Error().
			Err(err).
			Str("kind", kind).
			Msg("Telegram send failed")
		return fmt.Errorf("send %s: %w", kind, err)
	}
	botSends.WithLabelValues(kind, "ok").Inc()
	return nil
}

// FromTelegramUpdate converts a raw Bot API update into the neutral form.
// It returns false for update kinds the flow does not handle.
func FromTelegramUpdate(upd *models.Update) (Update, bool) {
	if upd == nil {
		return Update{}, false
	}

	if cb := upd.CallbackQuery; cb != nil {
		out := Update{
			Callback: &Callback{
				ID:   cb.ID,
				Data: cb.Data,
			},
		}
		if msg := cb.Message.Message; msg != nil {
			out.ChatID = msg.Chat.ID
			out.Callback.ChatID = msg.Chat.ID
			out.Callback.MessageID = msg.ID
		}
		return out, true
	}

	if msg := upd.Message; msg != nil {
		out := Update{
			ChatID: msg.Chat.ID,
			Text:   msg.Text,
		}
		if msg.WebAppData != nil {
			out.WebAppData = msg.WebAppData.Data
		}
		return out, true
	}

	return Update{}, false
}
