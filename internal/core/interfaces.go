package core

import (
	"context"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
)

// Frame is a serialized outbound event.
type Frame []byte

// SessionID identifies one live socket for its whole lifetime.
type SessionID string

// SignalConnection abstracts the messaging transport of one connection.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberDTO is a read-only roster entry (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

type RoomInfo struct {
	Code         domain.RoomCode `json:"roomCode"`
	MemberCount  int             `json:"userCount"`
	MessageCount int             `json:"messageCount"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// MessageStore is the durable log of public messages. Implementations
// return QueryRecent rows newest first; proximity filtering is the caller's job.
type MessageStore interface {
	Append(ctx context.Context, msg domain.Message) error
	QueryRecent(ctx context.Context, within time.Duration, limit int) ([]domain.Message, error)
}
