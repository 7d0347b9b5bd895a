package signal

import (
	"context"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// writePump owns every write to the socket. When it exits the socket is
// closed, which unblocks readPump.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
		ctl.handleSignal(sid, c, data)
	}
}

type handler struct {
	fn         func(ctl *SignalWSController, sid core.SessionID, c *WsSignalConn, data []byte) error
	roomScoped bool
}

var handlers = map[string]handler{
	ReqRegister:       {fn: (*SignalWSController).handleRegister},
	ReqUpdateLocation: {fn: (*SignalWSController).handleUpdateLocation},
	ReqGetNearbyUsers: {fn: (*SignalWSController).handleGetNearby},
	ReqSendMessage:    {fn: (*SignalWSController).handleSendMessage},
	ReqWhoAmI:         {fn: (*SignalWSController).handleWhoAmI},
	ReqPing:           {fn: (*SignalWSController).handlePing},
	ReqCreateRoom:     {fn: (*SignalWSController).handleCreateRoom, roomScoped: true},
	ReqJoinRoom:       {fn: (*SignalWSController).handleJoinRoom, roomScoped: true},
	ReqSendPrivate:    {fn: (*SignalWSController).handleSendPrivate, roomScoped: true},
	ReqLeaveRoom:      {fn: (*SignalWSController).handleLeaveRoom, roomScoped: true},
	ReqStartVote:      {fn: (*SignalWSController).handleStartVote, roomScoped: true},
	ReqVote:           {fn: (*SignalWSController).handleVote, roomScoped: true},
	ReqInvite:         {fn: (*SignalWSController).handleInvite, roomScoped: true},
	ReqRespondInvite:  {fn: (*SignalWSController).handleRespondInvite, roomScoped: true},
}

// handleSignal routes one inbound frame. A failing request only ever
// produces an error event for its sender.
func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	typ, err := peekType(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendJSON(c, errorEvent(err, false))
		return
	}
	h, ok := handlers[typ]
	if !ok {
		log.Warn().Str("module", "signal").Str("type", typ).Msg("unknown signal")
		ctl.sendJSON(c, core.ErrorEvent{Type: core.EvError, Message: "Unknown request type."})
		return
	}
	if err := h.fn(ctl, sid, c, data); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", typ).Msg("request rejected")
		ctl.sendJSON(c, errorEvent(err, h.roomScoped))
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
