package history

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"shopsmart/internal/logger"
	"shopsmart/internal/shopping"
	"shopsmart/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultKey is the storage slot holding the history collection.
	DefaultKey = "shopsmart-history"
	// MaxEntries is how many results are kept.
	MaxEntries = 10
)

// Entry is one saved generation result. ItemCount and TotalCost are copies
// taken at save time so listings need not walk the payload.
type Entry struct {
	ID        string                    `json:"id"`
	Date      time.Time                 `json:"date"`
	Budget    float64                   `json:"budget"`
	ItemCount int                       `json:"itemCount"`
	TotalCost float64                   `json:"totalCost"`
	Response  shopping.GenerationResult `json:"response"`
}

// Store is the bounded, newest-first collection of past results kept in a
// single storage slot. Storage failures are logged and never returned.
type Store struct {
	// mu serializes read-modify-write cycles of this store.
	mu     sync.Mutex
	kv     storage.KV
	key    string
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey stores the collection under key instead of DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.OrNop(l) }
}

// NewStore creates a Store over kv.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		key:    DefaultKey,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the saved entries, newest first. A missing, unreadable or
// corrupt collection yields an empty list.
func (s *Store) List(ctx context.Context) []Entry {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read history", zap.String("key", s.key), zap.Error(err))
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("discarding corrupt history", zap.String("key", s.key), zap.Error(err))
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, bool) {
	for _, e := range s.List(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Save records result as the newest entry and drops the oldest ones beyond
// MaxEntries. The entry is returned even if it could not be persisted.
func (s *Store) Save(ctx context.Context, result shopping.GenerationResult, budget float64) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	entry := Entry{
		ID:        newID(now),
		Date:      now,
		Budget:    budget,
		ItemCount: len(result.Items),
		TotalCost: result.TotalCost,
		Response:  result,
	}

	entries := append([]Entry{entry}, s.List(ctx)...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.write(ctx, entries)
	return entry
}

// Delete removes the entry with id. Unknown ids leave the history untouched.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.List(ctx)
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return
	}
	s.write(ctx, kept)
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Warn("failed to clear history", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) write(ctx context.Context, entries []Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn("failed to encode history", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("failed to persist history", zap.String("key", s.key), zap.Error(err))
	}
}

// newID derives a time-ordered id. UUIDv7 embeds the creation time in
// milliseconds plus random bits, so ids from the same millisecond differ.
func newID(now time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		return strconv.FormatInt(now.UnixNano(), 10)
	}
	return id.String()
}
