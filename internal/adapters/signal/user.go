package signal

import (
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
)

type whoAmIResponse struct {
	Type      string          `json:"type"`
	ID        domain.UserID   `json:"id"`
	Username  string          `json:"username,omitempty"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	RoomCode  domain.RoomCode `json:"roomCode,omitempty"`
}

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn *WsSignalConn, data []byte) error {
	if _, err := decode[bareRequest](data); err != nil {
		return err
	}
	resp := whoAmIResponse{Type: core.EvWhoAmI, ID: domain.UserID(sid)}
	if user, ok := ctl.Orch.Registry.Get(sid); ok {
		resp.Username = user.Username
		if user.HasLocation() {
			lat, lon := user.Location.Latitude, user.Location.Longitude
			resp.Latitude, resp.Longitude = &lat, &lon
		}
	}
	if code, ok := ctl.Orch.Rooms.RoomOf(sid); ok {
		resp.RoomCode = code
	}
	ctl.sendJSON(conn, resp)
	return nil
}
