// Package session holds the per-chat authentication and checkout state
// shared between the bot handler and the web-data endpoint.
package session

import (
	"sync"
	"time"
)

// UserData is the authenticated identity handed over by the web app login.
type UserData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email"`

	// "adress" matches the web app payload, typo and all.
	Address string `json:"adress"`
}

// CurrentOrder references the order awaiting confirmation in a chat.
type CurrentOrder struct {
	// OrderID is 0 when the order was not durably recorded.
	OrderID int64

	QueryID string
	ChatID  int64

	// MessageID identifies the confirmation message, for keyboard removal.
	MessageID int

	Total float64
}

// Session is one chat's state. Sessions live in process memory only and are
// lost on restart; the web app login recreates them.
type Session struct {
	ChatID          int64
	Authenticated   bool
	User            UserData
	CreatedAt       time.Time
	AwaitingAddress bool
	CurrentOrder    *CurrentOrder
}

// Store is the injected session store abstraction. A single chat's session
// must only be mutated through Update, which runs the callback under a
// per-chat lock: the bot handler and the HTTP layer share these records.
type Store interface {
	// Get returns a snapshot of the chat's session, or nil.
	Get(chatID int64) *Session

	// Put creates or replaces the chat's session.
	Put(s *Session)

	// Update mutates the chat's session under its lock. The callback
	// receives nil when no session exists; returning false discards the
	// session (logout).
	Update(chatID int64, fn func(s *Session) bool)

	// Delete removes the chat's session.
	Delete(chatID int64)

	// Len returns the number of active sessions.
	Len() int
}

// MemoryStore is the in-process session store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (m *MemoryStore) chatLock(chatID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[chatID] = lock
	}
	return lock
}

func clone(s *Session) *Session {
	copied := *s
	if s.CurrentOrder != nil {
		order := *s.CurrentOrder
		copied.CurrentOrder = &order
	}
	return &copied
}

// Get returns a copy of the chat's session, or nil.
func (m *MemoryStore) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	return clone(s)
}

// Put creates or replaces the chat's session. It waits for any in-flight
// Update on the chat so a login cannot be clobbered by a stale write-back.
// A copy is stored, so the caller keeps sole ownership of its argument.
func (m *MemoryStore) Put(s *Session) {
	lock := m.chatLock(s.ChatID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ChatID] = clone(s)
}

// Update mutates the chat's session under its per-chat lock. The callback
// works on a private copy; the stored record is swapped out on write-back
// and never mutated in place, so Get readers need no per-chat lock.
func (m *MemoryStore) Update(chatID int64, fn func(s *Session) bool) {
	lock := m.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	work := m.Get(chatID)

	keep := fn(work)
	if work == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if keep {
		m.sessions[chatID] = work
	} else {
		delete(m.sessions, chatID)
	}
}

// Delete removes the chat's session.
func (m *MemoryStore) Delete(chatID int64) {
	lock := m.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Len returns the number of active sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
