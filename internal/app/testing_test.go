package app

import (
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
)

// fakeClock is a settable time source shared by the tests of this package.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (m *RoomManager) exists(code domain.RoomCode) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[code]
	return ok
}

func (m *RoomManager) history(code domain.RoomCode) ([]domain.PrivateMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, false
	}
	return room.History(), true
}

func (m *RoomManager) voteOpen(code domain.RoomCode) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.votes[code]
	return ok
}
