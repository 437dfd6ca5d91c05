package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/velikanov/teleshop/internal/orders"
	"github.com/velikanov/teleshop/internal/session"
	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/internal/testutil"
	"github.com/velikanov/teleshop/pkg/cache"
)

type nullSender struct {
	confirmations []string
}

func (n *nullSender) SendMessage(context.Context, int64, string) error { return nil }

func (n *nullSender) SendOrderConfirmation(_ context.Context, _ int64, _, confirmData, _ string) (int, error) {
	n.confirmations = append(n.confirmations, confirmData)
	return len(n.confirmations), nil
}

func (n *nullSender) AnswerCallback(context.Context, string, string) error { return nil }
func (n *nullSender) RemoveInlineKeyboard(context.Context, int64, int) error { return nil }
func (n *nullSender) AnswerWebAppQuery(context.Context, string, string) error { return nil }

type testEnv struct {
	router   *gin.Engine
	db       *sql.DB
	sessions *session.MemoryStore
	sender   *nullSender
	cache    *cache.Manager
	users    *store.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, func(t *testing.T) cache.Store {
		s := cache.NewMemoryStore()
		t.Cleanup(s.Close)
		return s
	})
}

func newTestEnvWithCache(t *testing.T, newStore func(t *testing.T) cache.Store) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)

	products := store.NewProductRepository(db)
	types := store.NewTypeRepository(db)
	users := store.NewUserRepository(db)
	ordersRepo := store.NewOrderRepository(db)

	manager := cache.NewManager(newStore(t))
	service := orders.NewService(ordersRepo, manager, "", "https://shop.example.com", zerolog.Nop())
	sessions := session.NewMemoryStore()
	sender := &nullSender{}
	orchestrator := orders.NewOrchestrator(service, sessions, users, sender, zerolog.Nop())

	server := NewServer(Config{
		Products:     products,
		Types:        types,
		Users:        users,
		Orders:       service,
		Orchestrator: orchestrator,
		Cache:        manager,
		JWTSecret:    "test-secret",
		Logger:       zerolog.Nop(),
	})

	return &testEnv{
		router:   server.Router(),
		db:       db,
		sessions: sessions,
		sender:   sender,
		cache:    manager,
		users:    users,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// registerAdmin creates an admin directly in the database and logs in.
func registerAdmin(t *testing.T, e *testEnv) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.db.Exec(
		"INSERT INTO users (username, password, email, role) VALUES ('admin', ?, 'admin@example.com', 'admin')",
		string(hash),
	); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/api/user/login", "", gin.H{"username": "admin", "password": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login = %d: %s", w.Code, w.Body.String())
	}
	return decode[map[string]any](t, w)["token"].(string)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestProductList_ReadThrough(t *testing.T) {
	e := newTestEnv(t)
	testutil.SeedProduct(t, e.db, 5, "Tea", 10)

	w := e.do(t, http.MethodGet, "/api/product?page=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first list = %d: %s", w.Code, w.Body.String())
	}
	first := decode[store.ProductPage](t, w)
	if first.Count != 1 {
		t.Fatalf("count = %d, want 1", first.Count)
	}

	// Remove the row behind the cache's back: a second identical request
	// must be served from the cache, not the database.
	if _, err := e.db.Exec("DELETE FROM products"); err != nil {
		t.Fatal(err)
	}

	w = e.do(t, http.MethodGet, "/api/product?page=1", "", nil)
	second := decode[store.ProductPage](t, w)
	if second.Count != 1 {
		t.Errorf("expected cached listing with count 1, got %d", second.Count)
	}

	// A different filter is a different key and sees the real state.
	w = e.do(t, http.MethodGet, "/api/product?page=2", "", nil)
	other := decode[store.ProductPage](t, w)
	if other.Count != 0 {
		t.Errorf("uncached filter should see the empty table, got count %d", other.Count)
	}
}

func TestProductGet_NotFound(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/product/999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

type downStore struct{}

var errDown = errors.New("store down")

func (downStore) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (downStore) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (downStore) Delete(context.Context, string) error { return errDown }
func (downStore) DeleteByPrefix(context.Context, string) (int, error) { return 0, errDown }
func (downStore) Ping(context.Context) error { return errDown }

func TestProductList_DegradesWhenCacheDown(t *testing.T) {
	e := newTestEnvWithCache(t, func(t *testing.T) cache.Store { return downStore{} })
	testutil.SeedProduct(t, e.db, 5, "Tea", 10)

	w := e.do(t, http.MethodGet, "/api/product", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cache outage must not fail the request, status = %d", w.Code)
	}
	page := decode[store.ProductPage](t, w)
	if page.Count != 1 {
		t.Errorf("count = %d, want 1 from the database", page.Count)
	}
}

func TestProductWrite_RequiresAdmin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/product", "", gin.H{"name": "Tea", "price": 10})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", w.Code)
	}

	// A regular user is authenticated but not authorized.
	w = e.do(t, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "bob", "password": "pw", "email": "bob@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", w.Code, w.Body.String())
	}
	token := decode[map[string]any](t, w)["token"].(string)

	w = e.do(t, http.MethodPost, "/api/product", token, gin.H{"name": "Tea", "price": 10})
	if w.Code != http.StatusForbidden {
		t.Fatalf("user create = %d, want 403", w.Code)
	}
}

func TestTypeCreate_InvalidatesCachedListing(t *testing.T) {
	e := newTestEnv(t)
	token := registerAdmin(t, e)

	w := e.do(t, http.MethodGet, "/api/product/type", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("type list = %d", w.Code)
	}
	if decode[store.TypePage](t, w).Count != 0 {
		t.Fatal("expected empty type listing")
	}

	w = e.do(t, http.MethodPost, "/api/product/type", token, gin.H{"name": "Beverages"})
	if w.Code != http.StatusCreated {
		t.Fatalf("type create = %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/product/type", "", nil)
	if got := decode[store.TypePage](t, w).Count; got != 1 {
		t.Errorf("listing after create = %d, want 1 (stale cache?)", got)
	}
}

func TestUserRegister_Duplicate(t *testing.T) {
	e := newTestEnv(t)

	body := gin.H{"username": "bob", "password": "pw", "email": "bob@example.com"}
	if w := e.do(t, http.MethodPost, "/api/user/register", "", body); w.Code != http.StatusCreated {
		t.Fatalf("first register = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/user/register", "", body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register = %d, want 409", w.Code)
	}
}

func TestUserLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "bob", "password": "pw", "email": "bob@example.com",
	})
	w := e.do(t, http.MethodPost, "/api/user/login", "", gin.H{"username": "bob", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", w.Code)
	}
}

func TestUserAuth_RoundTrip(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "bob", "password": "pw", "email": "bob@example.com",
	})
	token := decode[map[string]any](t, w)["token"].(string)

	w = e.do(t, http.MethodGet, "/api/user/auth", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("auth = %d: %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodGet, "/api/user/auth", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", w.Code)
	}
}

func TestWebData_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/web-data", "", gin.H{
		"queryId":    "q1",
		"chatId":     1,
		"products":   []gin.H{{"id": 5, "name": "Tea", "price": 10, "quantity": 2}},
		"totalPrice": 20,
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["error"] != "not_authenticated" {
		t.Errorf("error = %v", body["error"])
	}

	var count int
	if err := e.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("orders created = %d, want 0", count)
	}
}

func TestWebData_ConfirmationSent(t *testing.T) {
	e := newTestEnv(t)
	testutil.SeedUser(t, e.db, 42, "alice", "Street 1", "user")
	testutil.SeedProduct(t, e.db, 5, "Tea", 10)
	e.sessions.Put(&session.Session{
		ChatID:        1,
		Authenticated: true,
		User:          session.UserData{ID: 42, Username: "alice", Address: "Street 1"},
		CreatedAt:     time.Now(),
	})

	w := e.do(t, http.MethodPost, "/web-data", "", gin.H{
		"queryId":    "q1",
		"chatId":     1,
		"products":   []gin.H{{"id": 5, "name": "Tea", "price": 10, "quantity": 2}},
		"totalPrice": 20,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "confirmation_sent" {
		t.Errorf("status field = %v", body["status"])
	}
	orderID := int64(body["orderId"].(float64))
	if orderID == 0 {
		t.Fatal("expected a persisted order id")
	}

	if len(e.sender.confirmations) != 1 {
		t.Fatalf("confirmations sent = %d", len(e.sender.confirmations))
	}
	want := fmt.Sprintf("confirm_order_q1_%d", orderID)
	if e.sender.confirmations[0] != want {
		t.Errorf("confirm data = %q, want %q", e.sender.confirmations[0], want)
	}
}

func TestOrderStatusUpdate_Validation(t *testing.T) {
	e := newTestEnv(t)
	token := registerAdmin(t, e)
	testutil.SeedUser(t, e.db, 42, "alice", "Street 1", "user")
	testutil.SeedProduct(t, e.db, 5, "Tea", 10)

	w := e.do(t, http.MethodPost, "/api/order", "", gin.H{
		"items":           []gin.H{{"productId": 5, "quantity": 2, "price": 10}},
		"totalAmount":     20,
		"shippingAddress": "Street 1",
		"userId":          42,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("order create = %d: %s", w.Code, w.Body.String())
	}
	order := decode[store.Order](t, w)

	path := fmt.Sprintf("/api/order/%d/status", order.ID)
	if w := e.do(t, http.MethodPut, path, token, gin.H{"status": "teleported"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/api/order/999/status", token, gin.H{"status": "delivered"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown order = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodPut, path, token, gin.H{"status": "delivered"}); w.Code != http.StatusOK {
		t.Errorf("valid update = %d, want 200", w.Code)
	}
}

func TestOrderList_AdminIncludesUser(t *testing.T) {
	e := newTestEnv(t)
	token := registerAdmin(t, e)
	testutil.SeedUser(t, e.db, 42, "alice", "Street 1", "user")
	testutil.SeedProduct(t, e.db, 5, "Tea", 10)

	w := e.do(t, http.MethodPost, "/api/order", "", gin.H{
		"items":           []gin.H{{"productId": 5, "quantity": 2, "price": 10}},
		"totalAmount":     20,
		"shippingAddress": "Street 1",
		"userId":          42,
	})
	if w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	// Anonymous listing has no user records embedded.
	w = e.do(t, http.MethodGet, "/api/order", "", nil)
	if strings.Contains(w.Body.String(), `"username"`) {
		t.Error("anonymous order listing must not embed user records")
	}

	// Admin listing does, from a separate cache entry.
	w = e.do(t, http.MethodGet, "/api/order", token, nil)
	page := decode[store.OrderPage](t, w)
	if len(page.Orders) != 1 || page.Orders[0].User == nil {
		t.Errorf("admin listing should embed the user, got %+v", page.Orders)
	}
}
