package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/velikanov/teleshop/internal/session"
	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/internal/testutil"
	"github.com/velikanov/teleshop/pkg/cache"
)

type confirmationSend struct {
	chatID      int64
	text        string
	confirmData string
	changeData  string
}

type recordingSender struct {
	messages        []string
	confirmations   []confirmationSend
	callbackAnswers []string
	removedMessages []int
	webAppAnswers   []string

	nextMessageID int
}

func (r *recordingSender) SendMessage(_ context.Context, _ int64, text string) error {
	r.messages = append(r.messages, text)
	return nil
}

func (r *recordingSender) SendOrderConfirmation(_ context.Context, chatID int64, text, confirmData, changeData string) (int, error) {
	r.confirmations = append(r.confirmations, confirmationSend{chatID, text, confirmData, changeData})
	r.nextMessageID++
	return r.nextMessageID, nil
}

func (r *recordingSender) AnswerCallback(_ context.Context, callbackID, _ string) error {
	r.callbackAnswers = append(r.callbackAnswers, callbackID)
	return nil
}

func (r *recordingSender) RemoveInlineKeyboard(_ context.Context, _ int64, messageID int) error {
	r.removedMessages = append(r.removedMessages, messageID)
	return nil
}

func (r *recordingSender) AnswerWebAppQuery(_ context.Context, queryID, _ string) error {
	r.webAppAnswers = append(r.webAppAnswers, queryID)
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	service      *Service
	sessions     *session.MemoryStore
	sender       *recordingSender
	users        *store.UserRepository
	repo         *store.OrderRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	testutil.SeedUser(t, db, 42, "alice", "Street 1", "user")
	testutil.SeedProduct(t, db, 5, "Tea", 10)

	repo := store.NewOrderRepository(db)
	users := store.NewUserRepository(db)
	manager := cache.NewManager(newMemoryStore(t))
	service := NewService(repo, manager, "", "https://shop.example.com", zerolog.Nop())
	sessions := session.NewMemoryStore()
	sender := &recordingSender{}

	return &fixture{
		orchestrator: NewOrchestrator(service, sessions, users, sender, zerolog.Nop()),
		service:      service,
		sessions:     sessions,
		sender:       sender,
		users:        users,
		repo:         repo,
	}
}

func newMemoryStore(t *testing.T) cache.Store {
	t.Helper()
	s := cache.NewMemoryStore()
	t.Cleanup(s.Close)
	return s
}

func authenticate(f *fixture, chatID, userID int64, address string) {
	f.sessions.Put(&session.Session{
		ChatID:        chatID,
		Authenticated: true,
		User:          session.UserData{ID: userID, Username: "alice", Role: "user", Address: address},
		CreatedAt:     time.Now(),
	})
}

func teaCart() CartSubmission {
	return CartSubmission{
		QueryID:    "q1",
		ChatID:     1,
		Products:   []CartItem{{ID: 5, Name: "Tea", Price: 10, Quantity: 2}},
		TotalPrice: 20,
	}
}

func TestSubmitCart_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.SubmitCart(context.Background(), teaCart())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	page, err := f.repo.List(context.Background(), store.OrderFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalCount != 0 {
		t.Errorf("unauthenticated submission must not create orders, found %d", page.TotalCount)
	}
	if len(f.sender.confirmations) != 0 {
		t.Error("unauthenticated submission must not send a confirmation")
	}
}

func TestSubmitCart_EndToEnd(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")

	res, err := f.orchestrator.SubmitCart(context.Background(), teaCart())
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderID == 0 {
		t.Fatal("expected a persisted order id")
	}

	order, err := f.service.Get(context.Background(), res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != store.StatusPending {
		t.Errorf("status = %q, want pending", order.Status)
	}
	if order.TotalAmount != 20 {
		t.Errorf("totalAmount = %v, want 20", order.TotalAmount)
	}
	if order.ShippingAddress != "Street 1" {
		t.Errorf("shippingAddress = %q", order.ShippingAddress)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != 5 || order.Items[0].Quantity != 2 {
		t.Errorf("items = %+v", order.Items)
	}

	if len(f.sender.confirmations) != 1 {
		t.Fatalf("expected 1 confirmation send, got %d", len(f.sender.confirmations))
	}
	conf := f.sender.confirmations[0]
	if conf.chatID != 1 {
		t.Errorf("confirmation chat = %d", conf.chatID)
	}
	if !strings.HasPrefix(conf.confirmData, "confirm_order_q1_") {
		t.Errorf("confirm callback data = %q", conf.confirmData)
	}
	if conf.changeData != "change_address_1" {
		t.Errorf("change-address callback data = %q", conf.changeData)
	}
	if len(f.sender.webAppAnswers) != 1 || f.sender.webAppAnswers[0] != "q1" {
		t.Errorf("web-app answers = %v", f.sender.webAppAnswers)
	}

	sess := f.sessions.Get(1)
	if sess == nil || sess.CurrentOrder == nil {
		t.Fatal("expected CurrentOrder stashed in the session")
	}
	if sess.CurrentOrder.OrderID != res.OrderID || sess.CurrentOrder.QueryID != "q1" {
		t.Errorf("CurrentOrder = %+v", sess.CurrentOrder)
	}
}

func TestSubmitCart_EmptyCart(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")

	sub := teaCart()
	sub.Products = nil
	if _, err := f.orchestrator.SubmitCart(context.Background(), sub); err == nil {
		t.Fatal("expected error for empty cart")
	}
}

func TestSubmitCart_DegradesWithoutDatabase(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := store.NewOrderRepository(db)
	users := store.NewUserRepository(db)
	manager := cache.NewManager(newMemoryStore(t))
	service := NewService(repo, manager, "", "https://shop.example.com", zerolog.Nop())
	sessions := session.NewMemoryStore()
	sender := &recordingSender{}
	o := NewOrchestrator(service, sessions, users, sender, zerolog.Nop())

	sessions.Put(&session.Session{
		ChatID:        1,
		Authenticated: true,
		User:          session.UserData{ID: 42, Address: "Street 1"},
		CreatedAt:     time.Now(),
	})

	// Simulate the database being unreachable mid-flight.
	db.Close()

	res, err := o.SubmitCart(context.Background(), teaCart())
	if err != nil {
		t.Fatalf("degraded submission must not fail: %v", err)
	}
	if res.OrderID != 0 {
		t.Errorf("expected 0 order id in degraded mode, got %d", res.OrderID)
	}
	if len(sender.confirmations) != 1 {
		t.Fatal("confirmation must still be sent in degraded mode")
	}
	conf := sender.confirmations[0]
	if conf.confirmData != "confirm_order_q1_nodb" {
		t.Errorf("confirm callback data = %q", conf.confirmData)
	}
	if !strings.Contains(conf.text, "could not be recorded") {
		t.Errorf("degraded confirmation text should warn the user: %q", conf.text)
	}
}

func TestHandleConfirm_PromotesAndCleansUp(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")

	res, err := f.orchestrator.SubmitCart(context.Background(), teaCart())
	if err != nil {
		t.Fatal(err)
	}
	messageID := f.sessions.Get(1).CurrentOrder.MessageID

	if err := f.orchestrator.HandleConfirm(context.Background(), 1, messageID, "cb1", "q1", res.OrderID); err != nil {
		t.Fatal(err)
	}

	order, err := f.service.Get(context.Background(), res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != store.StatusProcessing {
		t.Errorf("status = %q, want processing", order.Status)
	}
	if len(f.sender.callbackAnswers) != 1 || f.sender.callbackAnswers[0] != "cb1" {
		t.Errorf("callback answers = %v", f.sender.callbackAnswers)
	}
	if len(f.sender.removedMessages) != 1 || f.sender.removedMessages[0] != messageID {
		t.Errorf("removed messages = %v", f.sender.removedMessages)
	}
	if f.sessions.Get(1).CurrentOrder != nil {
		t.Error("CurrentOrder should be cleared after confirmation")
	}
}

func TestHandleConfirm_Idempotent(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")

	res, err := f.orchestrator.SubmitCart(context.Background(), teaCart())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := f.orchestrator.HandleConfirm(context.Background(), 1, 0, "cb1", "q1", res.OrderID); err != nil {
			t.Fatalf("confirm attempt %d: %v", i+1, err)
		}
	}

	order, err := f.service.Get(context.Background(), res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != store.StatusProcessing {
		t.Errorf("status after double confirm = %q, want processing", order.Status)
	}
}

func TestHandleChangeAddress_SetsFlag(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")

	if err := f.orchestrator.HandleChangeAddress(context.Background(), 1, "cb2"); err != nil {
		t.Fatal(err)
	}

	sess := f.sessions.Get(1)
	if sess == nil || !sess.AwaitingAddress {
		t.Fatal("expected AwaitingAddress to be set")
	}
	if len(f.sender.messages) == 0 || !strings.Contains(f.sender.messages[0], "address") {
		t.Errorf("expected address prompt, got %v", f.sender.messages)
	}
}

func TestHandleChangeAddress_NoSession(t *testing.T) {
	f := newFixture(t)

	if err := f.orchestrator.HandleChangeAddress(context.Background(), 9, "cb2"); err != nil {
		t.Fatal(err)
	}
	if len(f.sender.messages) != 1 || !strings.Contains(f.sender.messages[0], "log in") {
		t.Errorf("messages = %v", f.sender.messages)
	}
}

func TestHandleAddressMessage_UpdatesEverywhereAndReprompts(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")

	res, err := f.orchestrator.SubmitCart(context.Background(), teaCart())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.orchestrator.HandleChangeAddress(context.Background(), 1, "cb2"); err != nil {
		t.Fatal(err)
	}

	if err := f.orchestrator.HandleAddressMessage(context.Background(), 1, "New Street 5"); err != nil {
		t.Fatal(err)
	}

	sess := f.sessions.Get(1)
	if sess.AwaitingAddress {
		t.Error("AwaitingAddress should be cleared")
	}
	if sess.User.Address != "New Street 5" {
		t.Errorf("session address = %q", sess.User.Address)
	}

	user, err := f.users.FindByID(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if user.Address != "New Street 5" {
		t.Errorf("persisted user address = %q", user.Address)
	}

	order, err := f.service.Get(context.Background(), res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.ShippingAddress != "New Street 5" {
		t.Errorf("order shipping address = %q", order.ShippingAddress)
	}

	// The confirmation prompt is re-sent with the corrected address.
	if len(f.sender.confirmations) != 2 {
		t.Fatalf("expected re-sent confirmation, got %d sends", len(f.sender.confirmations))
	}
	resend := f.sender.confirmations[1]
	if !strings.Contains(resend.text, "New Street 5") {
		t.Errorf("re-sent confirmation text = %q", resend.text)
	}
	if resend.confirmData != f.sender.confirmations[0].confirmData {
		t.Errorf("re-sent confirm data = %q, want %q", resend.confirmData, f.sender.confirmations[0].confirmData)
	}
	if sess.CurrentOrder.MessageID != 2 {
		t.Errorf("CurrentOrder.MessageID = %d, want the re-sent message id", sess.CurrentOrder.MessageID)
	}
}

func TestHandleAddressMessage_EmptyAddressRejected(t *testing.T) {
	f := newFixture(t)
	authenticate(f, 1, 42, "Street 1")
	f.sessions.Update(1, func(s *session.Session) bool {
		s.AwaitingAddress = true
		return true
	})

	if err := f.orchestrator.HandleAddressMessage(context.Background(), 1, "   "); err != nil {
		t.Fatal(err)
	}

	if !f.sessions.Get(1).AwaitingAddress {
		t.Error("AwaitingAddress should stay set after an empty address")
	}
}
