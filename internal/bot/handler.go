package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/velikanov/teleshop/internal/session"
	"github.com/velikanov/teleshop/internal/store"
)

// Sender is the outgoing-message surface the handler needs. *Gateway
// satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMenuKeyboard(ctx context.Context, chatID int64, text string, buttons []Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// ConfirmationFlow is the order-confirmation side of the conversation.
// *orders.Orchestrator satisfies it.
type ConfirmationFlow interface {
	HandleConfirm(ctx context.Context, chatID int64, messageID int, callbackID, queryID string, orderID int64) error
	HandleChangeAddress(ctx context.Context, chatID int64, callbackID string) error
	HandleAddressMessage(ctx context.Context, chatID int64, address string) error
}

const (
	buttonContacts = "📞 Contacts"
	buttonAbout    = "ℹ️ About us"
	buttonLogin    = "🚀 Log in"
	buttonShop     = "🛍 Open shop"
	buttonAdmin    = "⚙️ Admin panel"
	buttonStats    = "📊 Statistics"
	buttonLogout   = "🚪 Log out"
)

// Handler routes incoming updates: commands, keyboard buttons, the
// web-app login payload, address capture and inline-button callbacks.
// It is driven through a Sequencer, so at most one Handle runs per chat.
type Handler struct {
	sessions  session.Store
	sender    Sender
	flow      ConfirmationFlow
	sequencer *Sequencer
	webAppURL string
	logger    zerolog.Logger
}

// NewHandler creates a Handler. flow may be nil in deployments without
// the checkout flow; confirmation callbacks are then acknowledged and
// dropped.
func NewHandler(sessions session.Store, sender Sender, flow ConfirmationFlow, webAppURL string, logger zerolog.Logger) *Handler {
	if sessions == nil {
		panic("bot: sessions must not be nil")
	}
	if sender == nil {
		panic("bot: sender must not be nil")
	}
	return &Handler{
		sessions:  sessions,
		sender:    sender,
		flow:      flow,
		sequencer: NewSequencer(),
		webAppURL: strings.TrimRight(webAppURL, "/"),
		logger:    logger.With().Str("component", "bot_handler").Logger(),
	}
}

// Handle processes one update under the per-chat lock. Send failures are
// logged inside the gateway; Handle itself never returns an error because
// there is no caller that could do anything useful with one.
func (h *Handler) Handle(ctx context.Context, upd Update) {
	if upd.ChatID == 0 && upd.Callback == nil {
		return
	}

	chatID := upd.ChatID
	if chatID == 0 {
		chatID = upd.Callback.ChatID
	}

	h.sequencer.Do(chatID, func() {
		if upd.Callback != nil {
			h.handleCallback(ctx, upd.Callback)
			return
		}
		if upd.WebAppData != "" {
			h.handleLogin(ctx, upd.ChatID, upd.WebAppData)
			return
		}
		h.handleText(ctx, upd.ChatID, upd.Text)
	})
}

func (h *Handler) handleCallback(ctx context.Context, cb *Callback) {
	if queryID, orderID, ok := ParseConfirmCallback(cb.Data); ok {
		if h.flow == nil {
			_ = h.sender.AnswerCallback(ctx, cb.ID, "")
			return
		}
		if err := h.flow.HandleConfirm(ctx, cb.ChatID, cb.MessageID, cb.ID, queryID, orderID); err != nil {
			h.logger.Error().
				Err(err).
				Int64("chat_id", cb.ChatID).
				Int64("order_id", orderID).
				Msg("Order confirmation failed")
		}
		return
	}

	if chatID, ok := ParseChangeAddressCallback(cb.Data); ok {
		if h.flow == nil {
			_ = h.sender.AnswerCallback(ctx, cb.ID, "")
			return
		}
		if err := h.flow.HandleChangeAddress(ctx, chatID, cb.ID); err != nil {
			h.logger.Error().
				Err(err).
				Int64("chat_id", chatID).
				Msg("Address change request failed")
		}
		return
	}

	h.logger.Warn().
		Int64("chat_id", cb.ChatID).
		Str("data", cb.Data).
		Msg("Unrecognized callback data")
	_ = h.sender.AnswerCallback(ctx, cb.ID, "")
}

// handleLogin consumes the web-app login payload and creates the chat
// session.
func (h *Handler) handleLogin(ctx context.Context, chatID int64, payload string) {
	var user session.UserData
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		h.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("Invalid web-app login payload")
		_ = h.sender.SendMessage(ctx, chatID, "Could not process the login data, please try again.")
		return
	}

	h.sessions.Put(&session.Session{
		ChatID:        chatID,
		Authenticated: true,
		User:          user,
		CreatedAt:     time.Now(),
	})

	h.logger.Info().
		Int64("chat_id", chatID).
		Int64("user_id", user.ID).
		Str("role", user.Role).
		Msg("Chat authenticated via web app")

	summary := fmt.Sprintf("Username: %s\nRole: %s", user.Username, user.Role)
	if user.Email != "" {
		summary += "\nEmail: " + user.Email
	}
	_ = h.sender.SendMessage(ctx, chatID, "Authorization successful!")
	_ = h.sender.SendMessage(ctx, chatID, summary)

	h.sendRoleKeyboard(ctx, chatID, user.Role)
	h.sendMainMenu(ctx, chatID, user.Role)
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}

	sess := h.sessions.Get(chatID)

	// Address capture takes over the next plain message for this chat.
	if sess != nil && sess.AwaitingAddress && !strings.HasPrefix(text, "/") {
		if h.flow == nil {
			return
		}
		if err := h.flow.HandleAddressMessage(ctx, chatID, text); err != nil {
			h.logger.Error().
				Err(err).
				Int64("chat_id", chatID).
				Msg("Address update failed")
		}
		return
	}

	switch text {
	case "/start":
		if sess != nil && sess.Authenticated {
			h.sendRoleKeyboard(ctx, chatID, sess.User.Role)
			h.sendMainMenu(ctx, chatID, sess.User.Role)
		} else {
			h.sendRoleKeyboard(ctx, chatID, "")
		}

	case "/menu":
		if sess != nil && sess.Authenticated {
			h.sendMainMenu(ctx, chatID, sess.User.Role)
		}

	case "/sessions":
		if sess != nil && sess.Authenticated {
			_ = h.sender.SendMessage(ctx, chatID, fmt.Sprintf("Active sessions: %d", h.sessions.Len()))
		}

	case "/logout", buttonLogout:
		if sess != nil && sess.Authenticated {
			h.sessions.Delete(chatID)
			h.logger.Info().Int64("chat_id", chatID).Msg("Chat logged out")
			_ = h.sender.SendMessage(ctx, chatID, "You have been logged out.")
			h.sendRoleKeyboard(ctx, chatID, "")
		}

	case buttonContacts:
		_ = h.sender.SendMessage(ctx, chatID, "📱 Our contacts:\n\n• Phone: +7 (999) 123-45-67\n• Email: info@example.com\n• Address: 123 Example St")

	case buttonAbout:
		_ = h.sender.SendMessage(ctx, chatID, "🏢 About us:\n\nThe best shop in town. Quality goods, fast delivery and great service.")

	case buttonLogin:
		_ = h.sender.SendMessage(ctx, chatID, "Opening the login form...")
	}
}

func (h *Handler) sendRoleKeyboard(ctx context.Context, chatID int64, role string) {
	var buttons []Button
	switch role {
	case store.RoleAdmin:
		buttons = []Button{
			{Text: buttonAdmin, URL: h.webAppURL + "/admin"},
			{Text: buttonStats, URL: h.webAppURL + "/stats"},
			{Text: buttonLogout},
		}
	case "":
		buttons = []Button{
			{Text: buttonContacts},
			{Text: buttonAbout},
			{Text: buttonLogin, URL: h.webAppURL + "/form"},
		}
	default:
		buttons = []Button{
			{Text: buttonShop, URL: h.webAppURL},
			{Text: buttonLogout},
		}
	}
	_ = h.sender.SendMenuKeyboard(ctx, chatID, "Use the buttons below:", buttons)
}

func (h *Handler) sendMainMenu(ctx context.Context, chatID int64, role string) {
	text := "Main menu\n\n"
	switch role {
	case store.RoleAdmin:
		text += "You are an administrator. Use the buttons below to manage the shop."
	default:
		text += "Browse the shop with the buttons below."
	}
	_ = h.sender.SendMessage(ctx, chatID, text)
}
