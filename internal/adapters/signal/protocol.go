package signal

import (
	"bytes"
	"fmt"

	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Client -> server request types.
const (
	ReqRegister       = "register"
	ReqUpdateLocation = "updateLocation"
	ReqSendMessage    = "sendMessage"
	ReqGetNearbyUsers = "getNearbyUsers"
	ReqCreateRoom     = "createPrivateRoom"
	ReqJoinRoom       = "joinPrivateRoom"
	ReqSendPrivate    = "sendPrivateMessage"
	ReqLeaveRoom      = "leavePrivateRoom"
	ReqStartVote      = "startRoomDeletionVote"
	ReqVote           = "voteRoomDeletion"
	ReqInvite         = "inviteToPrivateRoom"
	ReqRespondInvite  = "respondToPrivateRoomInvite"
	ReqWhoAmI         = "whoami"
	ReqPing           = "ping"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Type string `json:"type"`
}

type bareRequest struct {
	Type string `json:"type"`
}

type registerRequest struct {
	Type      string   `json:"type"`
	Username  string   `json:"username" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type locationRequest struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type messageRequest struct {
	Type    string `json:"type"`
	Message string `json:"message" validate:"required"`
}

// roomEntryRequest is shared by createPrivateRoom and joinPrivateRoom. The
// presence fields let an unregistered connection register on the way in.
type roomEntryRequest struct {
	Type      string   `json:"type"`
	RoomCode  string   `json:"roomCode" validate:"required"`
	Username  *string  `json:"username" validate:"omitempty"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (r roomEntryRequest) presence() *orch.Presence {
	if r.Username == nil || r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &orch.Presence{
		Name:     *r.Username,
		Location: domain.Location{Latitude: *r.Latitude, Longitude: *r.Longitude},
	}
}

type privateMessageRequest struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

type roomRequest struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode" validate:"required"`
}

type voteRequest struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode" validate:"required"`
	Vote     string `json:"vote" validate:"required,oneof=agree disagree"`
}

type inviteRequest struct {
	Type           string `json:"type"`
	RoomCode       string `json:"roomCode" validate:"required"`
	TargetUsername string `json:"targetUsername" validate:"required"`
}

type inviteResponseRequest struct {
	Type      string `json:"type"`
	RoomCode  string `json:"roomCode" validate:"required"`
	InviterID string `json:"inviterId" validate:"required"`
	Accept    *bool  `json:"accept" validate:"required"`
}

// decode parses data strictly into T: unknown fields and missing required
// fields are both invalid input.
func decode[T any](data []byte) (T, error) {
	var req T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return req, nil
}

func peekType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", domain.ErrInvalidInput)
	}
	return env.Type, nil
}
