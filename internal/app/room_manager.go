package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultEmptyRoomTTL = time.Hour

// RoomManager owns every private room, the conn -> room reverse index and
// the deletion votes. All three change under one lock so a connection is in
// at most one room and both views always agree.
type RoomManager struct {
	mu         sync.RWMutex
	rooms      map[domain.RoomCode]*core.PrivateRoom
	byConn     map[core.SessionID]domain.RoomCode
	votes      map[domain.RoomCode]*deletionVote
	ttl        time.Duration
	bufferSize int
	now        Clock
}

func NewRoomManager(ttl time.Duration, bufferSize int) *RoomManager {
	if ttl <= 0 {
		ttl = DefaultEmptyRoomTTL
	}
	if bufferSize <= 0 {
		bufferSize = core.DefaultRoomBufferSize
	}
	return &RoomManager{
		rooms:      make(map[domain.RoomCode]*core.PrivateRoom),
		byConn:     make(map[core.SessionID]domain.RoomCode),
		votes:      make(map[domain.RoomCode]*deletionVote),
		ttl:        ttl,
		bufferSize: bufferSize,
		now:        time.Now,
	}
}

func (m *RoomManager) WithClock(now Clock) *RoomManager {
	m.now = now
	return m
}

// Create opens a new room with sid as its only member and returns the roster.
func (m *RoomManager) Create(code domain.RoomCode, sid core.SessionID) ([]core.SessionID, error) {
	if _, err := domain.ParseRoomCode(string(code)); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.byConn[sid]; ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyInRoom, cur)
	}
	if _, ok := m.rooms[code]; ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomExists, code)
	}
	room := core.NewPrivateRoom(code, sid, m.now(), m.bufferSize)
	room.AddMember(sid)
	m.rooms[code] = room
	m.byConn[sid] = code
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(code)).Msg("room created")
	return room.Members(), nil
}

// Join adds sid to an existing room. Rooms are never created implicitly.
func (m *RoomManager) Join(code domain.RoomCode, sid core.SessionID) ([]core.SessionID, error) {
	if _, err := domain.ParseRoomCode(string(code)); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.byConn[sid]; ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyInRoom, cur)
	}
	room, ok := m.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, code)
	}
	room.AddMember(sid)
	m.byConn[sid] = code
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(code)).Msg("member joined")
	return room.Members(), nil
}

// Leave removes sid from code if it is a member there; otherwise it is a
// no-op. The room survives even when it becomes empty.
func (m *RoomManager) Leave(sid core.SessionID, code domain.RoomCode) (remaining []core.SessionID, left bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(sid, code)
}

// LeaveCurrent removes sid from whatever room it is in.
func (m *RoomManager) LeaveCurrent(sid core.SessionID) (code domain.RoomCode, remaining []core.SessionID, left bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.byConn[sid]
	if !ok {
		return "", nil, false
	}
	remaining, left = m.leaveLocked(sid, code)
	return code, remaining, left
}

func (m *RoomManager) leaveLocked(sid core.SessionID, code domain.RoomCode) ([]core.SessionID, bool) {
	room, ok := m.rooms[code]
	if !ok || !room.RemoveMember(sid) {
		return nil, false
	}
	delete(m.byConn, sid)
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(code)).Int("members", room.MemberCount()).Msg("member left")
	return room.Members(), true
}

func (m *RoomManager) RoomOf(sid core.SessionID) (domain.RoomCode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code, ok := m.byConn[sid]
	return code, ok
}

func (m *RoomManager) Members(code domain.RoomCode) ([]core.SessionID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, false
	}
	return room.Members(), true
}

// Post appends msg to the room buffer and returns the members to deliver to.
// A sender outside the room gets ErrNotInRoom whether or not the room exists.
func (m *RoomManager) Post(sid core.SessionID, msg domain.PrivateMessage) ([]core.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[msg.RoomCode]
	if !ok || !room.Has(sid) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotInRoom, msg.RoomCode)
	}
	room.Append(msg)
	return room.Members(), nil
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	return out
}

// Sweep deletes rooms that are empty and were created more than the TTL
// before now, together with any vote still open on them.
func (m *RoomManager) Sweep(now time.Time) []domain.RoomCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []domain.RoomCode
	for code, r := range m.rooms {
		if r.MemberCount() == 0 && now.Sub(r.CreatedAt()) > m.ttl {
			delete(m.rooms, code)
			delete(m.votes, code)
			removed = append(removed, code)
		}
	}
	if len(removed) > 0 {
		log.Info().Str("module", "app.rooms").Int("count", len(removed)).Msg("swept empty rooms")
	}
	return removed
}

// CheckInvariant verifies that the reverse index and member sets agree.
func (m *RoomManager) CheckInvariant() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := 0
	for code, r := range m.rooms {
		for _, sid := range r.Members() {
			if m.byConn[sid] != code {
				return fmt.Errorf("member %s of %s indexed as %q", sid, code, m.byConn[sid])
			}
			seen++
		}
	}
	if seen != len(m.byConn) {
		return fmt.Errorf("index has %d entries, rooms hold %d members", len(m.byConn), seen)
	}
	return nil
}

func (m *RoomManager) deleteLocked(code domain.RoomCode) {
	delete(m.rooms, code)
	delete(m.votes, code)
	log.Info().Str("module", "app.rooms").Str("room", string(code)).Msg("room deleted")
}
