package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) admitText(sid core.SessionID, raw string) (domain.User, error) {
	user, ok := o.Registry.Get(sid)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrUnknownConnection, sid)
	}
	if o.Limiter != nil && !o.Limiter.Allow(sid) {
		return domain.User{}, domain.ErrRateLimited
	}
	if err := domain.ValidateText(raw, o.settings().MaxMessageLen); err != nil {
		return domain.User{}, fmt.Errorf("message: %w", err)
	}
	return user, nil
}

// SendPublic delivers raw to every neighbor of sid, confirms it to sid and
// appends it to the message store. Having no neighbors is not an error.
func (o *Orchestrator) SendPublic(sid core.SessionID, raw string) error {
	var msg domain.Message
	err := o.run(func(out *batch) error {
		user, err := o.admitText(sid, raw)
		if err != nil {
			return err
		}
		if !user.HasLocation() {
			return domain.ErrNoLocation
		}
		msg = domain.Message{
			SenderID:   user.ID,
			SenderName: user.Username,
			Text:       domain.Escape(raw),
			Location:   *user.Location,
			Timestamp:  o.now(),
		}
		neighbors := o.neighborsLocked(user)
		out.addAll(sessionIDs(neighbors), core.MessageEvent{Type: core.EvNewMessage, Message: msg})
		out.add(sid, core.MessageEvent{Type: core.EvMessageSent, Message: msg})
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Int("recipients", len(neighbors)).Msg("public message")
		return nil
	})
	if err != nil {
		return err
	}
	o.persist(msg)
	return nil
}

func (o *Orchestrator) persist(msg domain.Message) {
	if o.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.settings().StoreTimeout)
	defer cancel()
	if err := o.Store.Append(ctx, msg); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(msg.SenderID)).Msg("message not persisted")
	}
}

// SendPrivate delivers raw to the other members of code and confirms it to
// sid. The message goes to the room buffer, never to the public store.
func (o *Orchestrator) SendPrivate(sid core.SessionID, code domain.RoomCode, raw string) error {
	return o.run(func(out *batch) error {
		user, err := o.admitText(sid, raw)
		if err != nil {
			return err
		}
		if _, err := domain.ParseRoomCode(string(code)); err != nil {
			return err
		}
		msg := domain.PrivateMessage{
			SenderID:   user.ID,
			SenderName: user.Username,
			Text:       domain.Escape(raw),
			RoomCode:   code,
			Timestamp:  o.now(),
		}
		members, err := o.Rooms.Post(sid, msg)
		if err != nil {
			return err
		}
		out.addAll(members, core.PrivateMessageEvent{Type: core.EvNewPrivateMessage, PrivateMessage: msg})
		out.add(sid, core.PrivateMessageEvent{Type: core.EvPrivateMessageSent, PrivateMessage: msg})
		return nil
	})
}

func without(sids []core.SessionID, skip core.SessionID) []core.SessionID {
	out := make([]core.SessionID, 0, len(sids))
	for _, s := range sids {
		if s != skip {
			out = append(out, s)
		}
	}
	return out
}
