package domain

import "time"

// Message is a public, location-scoped chat message.
type Message struct {
	SenderID   UserID `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"message"`
	Location
	Timestamp time.Time `json:"timestamp"`
}

// PrivateMessage lives only in its room's buffer.
type PrivateMessage struct {
	SenderID   UserID    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"message"`
	RoomCode   RoomCode  `json:"roomCode"`
	Timestamp  time.Time `json:"timestamp"`
}
