package signal

import (
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

func location(lat, lon *float64) domain.Location {
	return domain.Location{Latitude: *lat, Longitude: *lon}
}

func (ctl *SignalWSController) handleRegister(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[registerRequest](data)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Username).Msg("register")
	return ctl.Orch.Register(sid, p.Username, location(p.Latitude, p.Longitude))
}

func (ctl *SignalWSController) handleUpdateLocation(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[locationRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.UpdateLocation(sid, location(p.Latitude, p.Longitude))
}

func (ctl *SignalWSController) handleGetNearby(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	if _, err := decode[bareRequest](data); err != nil {
		return err
	}
	return ctl.Orch.SendNearby(sid)
}

func (ctl *SignalWSController) handleSendMessage(sid core.SessionID, _ *WsSignalConn, data []byte) error {
	p, err := decode[messageRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.SendPublic(sid, p.Message)
}
