package telegram

import (
	"fmt"
	"sync"
	"time"

	"shopsmart/internal/app"
	"shopsmart/internal/history"
	"shopsmart/internal/shopping"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Session is the state kept for one chat.
type Session struct {
	Controller *app.Controller

	mu        sync.Mutex
	checklist *shopping.Checklist
	limiter   *rate.Limiter
}

// Toggle flips the tick on item i of the current result.
func (s *Session) Toggle(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checklist.Toggle(i)
}

func (s *Session) render(v app.View) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return formatView(v, s.checklist)
}

// resetChecklist starts a fresh checklist for a new result.
func (s *Session) resetChecklist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklist = shopping.NewChecklist()
}

// Allow reports whether the chat may start another generation now.
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

// HistoryKey is the storage slot holding the history of one chat.
func HistoryKey(chatID int64) string {
	return fmt.Sprintf("%s-%d", history.DefaultKey, chatID)
}

// ControllerFactory builds the controller for a chat.
type ControllerFactory func(chatID int64) *app.Controller

// Sessions caches per-chat sessions. Idle sessions expire; their history
// survives in storage and is picked up by the next session for that chat.
// A session evicted while its generation is pending is retained until the
// chat asks for it again, so a chat never has two controllers.
type Sessions struct {
	mu      sync.Mutex
	cache   *expirable.LRU[int64, *Session]
	factory ControllerFactory
	rate    rate.Limit
	burst   int

	// retained is guarded by retainMu; eviction callbacks run while the
	// cache holds its own lock, possibly under mu.
	retainMu sync.Mutex
	retained map[int64]*Session
}

// NewSessions keeps at most size sessions for ttl each. Each chat may start
// perMinute generations per minute.
func NewSessions(size int, ttl time.Duration, perMinute int, factory ControllerFactory) *Sessions {
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	s := &Sessions{
		factory:  factory,
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		retained: make(map[int64]*Session),
	}
	s.cache = expirable.NewLRU[int64, *Session](size, s.onEvict, ttl)
	return s
}

func (s *Sessions) onEvict(chatID int64, sess *Session) {
	if sess.Controller.State() != app.StatePending {
		return
	}
	s.retainMu.Lock()
	defer s.retainMu.Unlock()
	s.retained[chatID] = sess
}

// revive takes back a retained session for chatID and drops retained
// sessions whose generation has finished.
func (s *Sessions) revive(chatID int64) (*Session, bool) {
	s.retainMu.Lock()
	defer s.retainMu.Unlock()
	sess, ok := s.retained[chatID]
	delete(s.retained, chatID)
	for id, other := range s.retained {
		if other.Controller.State() != app.StatePending {
			delete(s.retained, id)
		}
	}
	return sess, ok
}

// Get returns the session for chatID, creating it if needed.
func (s *Sessions) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.cache.Get(chatID); ok {
		return sess
	}
	if sess, ok := s.revive(chatID); ok {
		s.cache.Add(chatID, sess)
		return sess
	}
	sess := &Session{
		Controller: s.factory(chatID),
		checklist:  shopping.NewChecklist(),
		limiter:    rate.NewLimiter(s.rate, s.burst),
	}
	s.cache.Add(chatID, sess)
	return sess
}

// Len returns the number of cached sessions, not counting retained ones.
func (s *Sessions) Len() int {
	return s.cache.Len()
}
