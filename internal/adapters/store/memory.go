package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
)

const DefaultMemoryCapacity = 1000

// MemoryStore keeps the newest messages in a bounded ring.
type MemoryStore struct {
	mu   sync.Mutex
	ring *core.Ring[domain.Message]
	now  func() time.Time
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{ring: core.NewRing[domain.Message](capacity), now: time.Now}
}

func (s *MemoryStore) Append(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.Push(msg)
	return nil
}

func (s *MemoryStore) QueryRecent(_ context.Context, within time.Duration, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	items := s.ring.Items()
	s.mu.Unlock()

	if limit <= 0 {
		limit = len(items)
	}
	cutoff := s.now().Add(-within)
	out := make([]domain.Message, 0, limit)
	for _, m := range slices.Backward(items) {
		if len(out) == limit {
			break
		}
		if m.Timestamp.After(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
