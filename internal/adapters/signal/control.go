package signal

import "github.com/dkeye/Nearby/internal/core"

func (ctl *SignalWSController) handlePing(_ core.SessionID, conn *WsSignalConn, _ []byte) error {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: core.EvPong,
	}
	ctl.sendJSON(conn, resp)
	return nil
}
