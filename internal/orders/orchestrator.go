package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/velikanov/teleshop/internal/bot"
	"github.com/velikanov/teleshop/internal/session"
	"github.com/velikanov/teleshop/internal/store"
)

// ErrNotAuthenticated is returned when a cart is submitted for a chat
// without an authenticated session.
var ErrNotAuthenticated = errors.New("chat is not authenticated")

// Sender is the Telegram surface the orchestrator needs. *bot.Gateway
// satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendOrderConfirmation(ctx context.Context, chatID int64, text, confirmData, changeAddressData string) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	RemoveInlineKeyboard(ctx context.Context, chatID int64, messageID int) error
	AnswerWebAppQuery(ctx context.Context, queryID, text string) error
}

// UserUpdater persists address changes for the authenticated user.
// *store.UserRepository satisfies it.
type UserUpdater interface {
	UpdateAddress(ctx context.Context, id int64, address string) error
}

// CartItem is one line of a submitted cart.
type CartItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// CartSubmission is the payload the web app posts to /web-data.
type CartSubmission struct {
	QueryID    string     `json:"queryId"`
	ChatID     int64      `json:"chatId"`
	Products   []CartItem `json:"products"`
	TotalPrice float64    `json:"totalPrice"`
}

// SubmitResult reports the outcome of a cart submission. OrderID is 0 when
// the order could not be durably recorded.
type SubmitResult struct {
	OrderID int64
}

// Orchestrator drives the order-confirmation handshake between the web
// app, the database and the Telegram chat.
type Orchestrator struct {
	service  *Service
	sessions session.Store
	users    UserUpdater
	sender   Sender
	logger   zerolog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(service *Service, sessions session.Store, users UserUpdater, sender Sender, logger zerolog.Logger) *Orchestrator {
	if service == nil {
		panic("orders: service must not be nil")
	}
	if sessions == nil {
		panic("orders: sessions must not be nil")
	}
	if sender == nil {
		panic("orders: sender must not be nil")
	}
	return &Orchestrator{
		service:  service,
		sessions: sessions,
		users:    users,
		sender:   sender,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// SubmitCart handles a cart posted from the web app. The chat must hold an
// authenticated session. A database failure while recording the order does
// not abort the flow: the confirmation message is still sent, marked as
// not durably recorded.
func (o *Orchestrator) SubmitCart(ctx context.Context, sub CartSubmission) (*SubmitResult, error) {
	if len(sub.Products) == 0 {
		return nil, errors.New("cart is empty")
	}

	sess := o.sessions.Get(sub.ChatID)
	if sess == nil || !sess.Authenticated {
		return nil, ErrNotAuthenticated
	}

	var orderID int64
	order, err := o.service.Create(ctx, store.NewOrder{
		UserID:          &sess.User.ID,
		TotalAmount:     sub.TotalPrice,
		ShippingAddress: sess.User.Address,
		Items:           cartToItems(sub.Products),
	})
	if err != nil {
		// Degraded mode: the user still gets a confirmation prompt, the
		// order is just not recorded.
		o.logger.Error().
			Err(err).
			Int64("chat_id", sub.ChatID).
			Msg("Could not persist order, continuing without a record")
	} else {
		orderID = order.ID
	}

	if err := o.sender.AnswerWebAppQuery(ctx, sub.QueryID, o.purchaseText(sub)); err != nil {
		o.logger.Warn().
			Err(err).
			Str("query_id", sub.QueryID).
			Msg("Could not answer web-app query")
	}

	confirmData := bot.ConfirmCallbackData(sub.QueryID, orderID)
	changeData := bot.ChangeAddressCallbackData(sub.ChatID)
	messageID, err := o.sender.SendOrderConfirmation(ctx, sub.ChatID, o.confirmationText(sub, sess, orderID), confirmData, changeData)
	if err != nil {
		return nil, fmt.Errorf("send confirmation: %w", err)
	}

	o.sessions.Update(sub.ChatID, func(s *session.Session) bool {
		if s == nil {
			return false
		}
		s.CurrentOrder = &session.CurrentOrder{
			OrderID:   orderID,
			QueryID:   sub.QueryID,
			ChatID:    sub.ChatID,
			MessageID: messageID,
			Total:     sub.TotalPrice,
		}
		return true
	})

	o.logger.Info().
		Int64("chat_id", sub.ChatID).
		Int64("order_id", orderID).
		Float64("total", sub.TotalPrice).
		Msg("Confirmation prompt sent")
	return &SubmitResult{OrderID: orderID}, nil
}

// HandleConfirm resolves a confirm-order callback: idempotent status
// promotion, callback answer, button removal and CurrentOrder cleanup.
func (o *Orchestrator) HandleConfirm(ctx context.Context, chatID int64, messageID int, callbackID, queryID string, orderID int64) error {
	if orderID != 0 {
		if err := o.service.Confirm(ctx, orderID); err != nil {
			// The user pressed a real button; degrade rather than leave it
			// spinning.
			o.logger.Error().
				Err(err).
				Int64("order_id", orderID).
				Msg("Order status promotion failed")
		}
	}

	_ = o.sender.AnswerCallback(ctx, callbackID, "Order confirmed, thank you!")

	if messageID != 0 {
		if err := o.sender.RemoveInlineKeyboard(ctx, chatID, messageID); err != nil {
			o.logger.Warn().
				Err(err).
				Int64("chat_id", chatID).
				Msg("Could not remove confirmation buttons")
		}
	}

	text := "Your order is being processed."
	if orderID != 0 {
		text = fmt.Sprintf("Order #%d is being processed.", orderID)
	}
	_ = o.sender.SendMessage(ctx, chatID, text)

	o.sessions.Update(chatID, func(s *session.Session) bool {
		if s == nil {
			return false
		}
		s.CurrentOrder = nil
		return true
	})

	o.logger.Info().
		Int64("chat_id", chatID).
		Int64("order_id", orderID).
		Str("query_id", queryID).
		Msg("Order confirmed")
	return nil
}

// HandleChangeAddress resolves a change-address callback: it flags the
// session so the next plain message is consumed as the new address.
func (o *Orchestrator) HandleChangeAddress(ctx context.Context, chatID int64, callbackID string) error {
	updated := false
	o.sessions.Update(chatID, func(s *session.Session) bool {
		if s == nil {
			return false
		}
		s.AwaitingAddress = true
		updated = true
		return true
	})

	_ = o.sender.AnswerCallback(ctx, callbackID, "")

	if !updated {
		_ = o.sender.SendMessage(ctx, chatID, "Your session has expired, please log in again.")
		return nil
	}
	return o.sender.SendMessage(ctx, chatID, "Please send the new shipping address as a message.")
}

// HandleAddressMessage consumes the free-text address for a chat in
// address-capture mode: the session and user record are updated, the
// pending order's shipping address is corrected and the confirmation
// prompt is re-sent with the new address.
func (o *Orchestrator) HandleAddressMessage(ctx context.Context, chatID int64, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return o.sender.SendMessage(ctx, chatID, "The address cannot be empty, please try again.")
	}

	var (
		exists  bool
		userID  int64
		current *session.CurrentOrder
	)
	o.sessions.Update(chatID, func(s *session.Session) bool {
		if s == nil {
			return false
		}
		exists = true
		s.AwaitingAddress = false
		s.User.Address = address
		userID = s.User.ID
		current = s.CurrentOrder
		return true
	})
	if !exists {
		_ = o.sender.SendMessage(ctx, chatID, "Your session has expired, please log in again.")
		return nil
	}

	if o.users != nil && userID != 0 {
		if err := o.users.UpdateAddress(ctx, userID, address); err != nil {
			o.logger.Warn().
				Err(err).
				Int64("user_id", userID).
				Msg("Could not persist address change")
		}
	}

	if current != nil && current.OrderID != 0 {
		if err := o.service.UpdateShippingAddress(ctx, current.OrderID, address); err != nil {
			o.logger.Warn().
				Err(err).
				Int64("order_id", current.OrderID).
				Msg("Could not update order shipping address")
		}
	}

	_ = o.sender.SendMessage(ctx, chatID, "Shipping address updated: "+address)

	// Re-send the confirmation prompt so the user can confirm with the
	// corrected address instead of resubmitting the cart.
	if current != nil {
		confirmData := bot.ConfirmCallbackData(current.QueryID, current.OrderID)
		changeData := bot.ChangeAddressCallbackData(chatID)
		text := fmt.Sprintf("Your order for %.2f will be shipped to:\n%s\n\nPlease confirm.", current.Total, address)
		messageID, err := o.sender.SendOrderConfirmation(ctx, chatID, text, confirmData, changeData)
		if err != nil {
			return fmt.Errorf("re-send confirmation: %w", err)
		}
		o.sessions.Update(chatID, func(s *session.Session) bool {
			if s == nil || s.CurrentOrder == nil {
				return s != nil
			}
			s.CurrentOrder.MessageID = messageID
			return true
		})
	}
	return nil
}

func (o *Orchestrator) purchaseText(sub CartSubmission) string {
	names := make([]string, 0, len(sub.Products))
	for _, p := range sub.Products {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("Thank you for your purchase of %.2f: %s", sub.TotalPrice, strings.Join(names, ", "))
}

func (o *Orchestrator) confirmationText(sub CartSubmission, sess *session.Session, orderID int64) string {
	var b strings.Builder
	b.WriteString("Your order:\n")
	for _, p := range sub.Products {
		fmt.Fprintf(&b, "• %s x%d: %.2f\n", p.Name, p.Quantity, p.Price*float64(p.Quantity))
	}
	fmt.Fprintf(&b, "\nTotal: %.2f\nShipping to: %s\n", sub.TotalPrice, sess.User.Address)
	if orderID == 0 {
		b.WriteString("\n⚠️ The order could not be recorded yet; our staff will follow up after confirmation.")
	}
	b.WriteString("\nPlease confirm your order.")
	return b.String()
}

func cartToItems(items []CartItem) []store.OrderItem {
	out := make([]store.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, store.OrderItem{
			ProductID: it.ID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return out
}
