package core

import (
	"slices"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
)

const DefaultRoomBufferSize = 100

// PrivateRoom is an in-memory code-addressed room.
// It is not safe for concurrent use; app.RoomManager guards every instance.
type PrivateRoom struct {
	code      domain.RoomCode
	creator   SessionID
	createdAt time.Time
	members   []SessionID
	history   *Ring[domain.PrivateMessage]
}

func NewPrivateRoom(code domain.RoomCode, creator SessionID, createdAt time.Time, bufferSize int) *PrivateRoom {
	return &PrivateRoom{
		code:      code,
		creator:   creator,
		createdAt: createdAt,
		history:   NewRing[domain.PrivateMessage](bufferSize),
	}
}

func (r *PrivateRoom) Code() domain.RoomCode { return r.code }
func (r *PrivateRoom) Creator() SessionID    { return r.creator }
func (r *PrivateRoom) CreatedAt() time.Time  { return r.createdAt }
func (r *PrivateRoom) MemberCount() int      { return len(r.members) }

func (r *PrivateRoom) Has(sid SessionID) bool {
	return slices.Contains(r.members, sid)
}

// Members returns member ids in join order.
func (r *PrivateRoom) Members() []SessionID {
	return slices.Clone(r.members)
}

func (r *PrivateRoom) AddMember(sid SessionID) bool {
	if r.Has(sid) {
		return false
	}
	r.members = append(r.members, sid)
	return true
}

func (r *PrivateRoom) RemoveMember(sid SessionID) bool {
	i := slices.Index(r.members, sid)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	return true
}

func (r *PrivateRoom) Append(msg domain.PrivateMessage) { r.history.Push(msg) }

func (r *PrivateRoom) History() []domain.PrivateMessage { return r.history.Items() }

func (r *PrivateRoom) Info() RoomInfo {
	return RoomInfo{
		Code:         r.code,
		MemberCount:  len(r.members),
		MessageCount: r.history.Len(),
		CreatedAt:    r.createdAt,
	}
}
