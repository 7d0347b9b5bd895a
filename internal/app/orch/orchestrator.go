package orch

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Settings are the tunables of the engine. Zero fields fall back to defaults.
type Settings struct {
	RadiusMeters  float64
	MaxMessageLen int
	HistoryWindow time.Duration
	HistoryLimit  int
	StoreTimeout  time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		RadiusMeters:  core.DefaultRadiusMeters,
		MaxMessageLen: domain.MaxMessageLen,
		HistoryWindow: 24 * time.Hour,
		HistoryLimit:  7,
		StoreTimeout:  3 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.RadiusMeters <= 0 {
		s.RadiusMeters = d.RadiusMeters
	}
	if s.MaxMessageLen <= 0 {
		s.MaxMessageLen = d.MaxMessageLen
	}
	if s.HistoryWindow <= 0 {
		s.HistoryWindow = d.HistoryWindow
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = d.HistoryLimit
	}
	if s.StoreTimeout <= 0 {
		s.StoreTimeout = d.StoreTimeout
	}
	return s
}

// Orchestrator drives the engine. Every handler runs to completion under mu,
// so no handler sees a half-applied registry, room or vote change. Outbound
// events are collected while locked and delivered after unlock.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Limiter  *app.RateLimiter
	Store    core.MessageStore
	Policy   app.Policy
	Settings Settings
	Now      app.Clock

	mu sync.Mutex
}

type outbound struct {
	to    []core.SessionID
	event any
}

type batch []outbound

func (b *batch) add(sid core.SessionID, event any) {
	*b = append(*b, outbound{to: []core.SessionID{sid}, event: event})
}

func (b *batch) addAll(sids []core.SessionID, event any) {
	if len(sids) == 0 {
		return
	}
	*b = append(*b, outbound{to: sids, event: event})
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) settings() Settings { return o.Settings.withDefaults() }

// run executes fn as one atomic handler and then flushes what it queued.
func (o *Orchestrator) run(fn func(out *batch) error) error {
	var out batch
	o.mu.Lock()
	err := fn(&out)
	o.mu.Unlock()
	o.flush(out)
	return err
}

func (o *Orchestrator) flush(out batch) {
	for _, msg := range out {
		frame, err := json.Marshal(msg.event)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Msg("marshal event")
			continue
		}
		for _, sid := range msg.to {
			o.deliver(sid, frame)
		}
	}
}

func (o *Orchestrator) deliver(sid core.SessionID, frame core.Frame) {
	conn, ok := o.Registry.Signal(sid)
	if !ok {
		return
	}
	err := conn.TrySend(frame)
	if err == nil || o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(sid, err) {
	case app.KickMember:
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("kicking slow connection")
		o.Registry.Cancel(sid)
	case app.DropFrame, app.NoAction:
	}
}

// Send delivers a single event to sid outside of any handler.
func (o *Orchestrator) Send(sid core.SessionID, event any) {
	var out batch
	out.add(sid, event)
	o.flush(out)
}

func (o *Orchestrator) OnConnect(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.BindSignal(sid, conn, cancel)
}

// OnDisconnect tells former neighbors and room mates that sid is gone and
// drops every trace of it.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	_ = o.run(func(out *batch) error {
		if user, ok := o.Registry.Get(sid); ok {
			if user.HasLocation() {
				for _, n := range o.neighborsLocked(user) {
					out.add(core.SessionID(n.ID), core.PresenceEvent{
						Type:     core.EvUserLeft,
						ID:       user.ID,
						Username: user.Username,
						Distance: n.Distance,
					})
				}
			}
			if code, remaining, left := o.Rooms.LeaveCurrent(sid); left {
				out.addAll(remaining, core.RoomMemberEvent{
					Type:     core.EvUserLeftPrivateRoom,
					ID:       user.ID,
					Username: user.Username,
					RoomCode: code,
				})
			}
		} else {
			o.Rooms.LeaveCurrent(sid)
		}
		if o.Limiter != nil {
			o.Limiter.Forget(sid)
		}
		o.Registry.Remove(sid)
		o.Registry.Unbind(sid)
		return nil
	})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("disconnected")
}

func (o *Orchestrator) neighborsLocked(user domain.User) []core.Neighbor {
	if !user.HasLocation() {
		return nil
	}
	return core.NeighborsOf(*user.Location, o.settings().RadiusMeters, user.ID, o.Registry.All())
}

func sessionIDs(ns []core.Neighbor) []core.SessionID {
	out := make([]core.SessionID, 0, len(ns))
	for _, n := range ns {
		out = append(out, core.SessionID(n.ID))
	}
	return out
}
