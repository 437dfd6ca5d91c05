package bot

import "sync"

// Sequencer serializes update handling per chat. A chat's session is
// exclusively owned by the handler processing it, so two updates for the
// same chat must never run concurrently; updates for different chats are
// independent and run in parallel.
type Sequencer struct {
	mu    sync.Mutex
	chats map[int64]*sync.Mutex
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{chats: make(map[int64]*sync.Mutex)}
}

// Do runs fn while holding the chat's lock.
func (s *Sequencer) Do(chatID int64, fn func()) {
	s.mu.Lock()
	lock, ok := s.chats[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chats[chatID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	botActiveChats.Inc()
	defer func() {
		botActiveChats.Dec()
		lock.Unlock()
	}()

	fn()
}
