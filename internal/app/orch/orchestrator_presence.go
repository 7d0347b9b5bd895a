package orch

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Register creates or replaces the presence of sid, pushes its neighbor
// snapshot, announces it to those neighbors and replays nearby history.
func (o *Orchestrator) Register(sid core.SessionID, name string, loc domain.Location) error {
	var user domain.User
	err := o.run(func(out *batch) error {
		var err error
		user, err = o.registerLocked(sid, name, loc, out)
		return err
	})
	if err != nil {
		return err
	}
	o.replayHistory(sid, *user.Location)
	return nil
}

func (o *Orchestrator) registerLocked(sid core.SessionID, name string, loc domain.Location, out *batch) (domain.User, error) {
	var before []core.Neighbor
	if prev, ok := o.Registry.Get(sid); ok {
		before = o.neighborsLocked(prev)
	}
	user, err := o.Registry.Register(sid, name, loc)
	if err != nil {
		return domain.User{}, err
	}
	neighbors := o.neighborsLocked(user)
	out.add(sid, core.NearbyUsersEvent{Type: core.EvNearbyUsers, Users: neighbors})
	for _, n := range neighbors {
		out.add(core.SessionID(n.ID), core.PresenceEvent{
			Type:     core.EvUserJoined,
			ID:       user.ID,
			Username: user.Username,
			Distance: n.Distance,
		})
	}

	// A replaced entry may have moved out of range of its old neighbors.
	if len(before) > 0 {
		after := sessionIDs(neighbors)
		for _, n := range before {
			if !slices.Contains(after, core.SessionID(n.ID)) {
				out.add(core.SessionID(n.ID), core.PresenceEvent{
					Type:     core.EvUserLeft,
					ID:       user.ID,
					Username: user.Username,
					Distance: n.Distance,
				})
			}
		}
		affected := append(sessionIDs(before), after...)
		slices.Sort(affected)
		for _, other := range slices.Compact(affected) {
			if u, ok := o.Registry.Get(other); ok {
				out.add(other, core.NearbyUsersEvent{Type: core.EvNearbyUsers, Users: o.neighborsLocked(u)})
			}
		}
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Int("neighbors", len(neighbors)).Msg("registered")
	return user, nil
}

// UpdateLocation moves sid, tells the neighbors at the new position and
// refreshes the snapshot of everyone whose neighborhood may have changed.
func (o *Orchestrator) UpdateLocation(sid core.SessionID, loc domain.Location) error {
	return o.run(func(out *batch) error {
		prev, ok := o.Registry.Get(sid)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownConnection, sid)
		}
		before := sessionIDs(o.neighborsLocked(prev))

		user, err := o.Registry.UpdateLocation(sid, loc)
		if err != nil {
			return err
		}
		after := o.neighborsLocked(user)
		for _, n := range after {
			out.add(core.SessionID(n.ID), core.PresenceEvent{
				Type:      core.EvUserLocationUpdated,
				ID:        user.ID,
				Username:  user.Username,
				Distance:  n.Distance,
				Latitude:  &loc.Latitude,
				Longitude: &loc.Longitude,
			})
		}
		out.add(sid, core.NearbyUsersEvent{Type: core.EvNearbyUsers, Users: after})

		affected := append(before, sessionIDs(after)...)
		slices.Sort(affected)
		for _, other := range slices.Compact(affected) {
			if u, ok := o.Registry.Get(other); ok {
				out.add(other, core.NearbyUsersEvent{Type: core.EvNearbyUsers, Users: o.neighborsLocked(u)})
			}
		}
		return nil
	})
}

// SendNearby pushes a fresh neighbor snapshot to sid.
func (o *Orchestrator) SendNearby(sid core.SessionID) error {
	return o.run(func(out *batch) error {
		user, ok := o.Registry.Get(sid)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownConnection, sid)
		}
		if !user.HasLocation() {
			return domain.ErrNoLocation
		}
		out.add(sid, core.NearbyUsersEvent{Type: core.EvNearbyUsers, Users: o.neighborsLocked(user)})
		return nil
	})
}

// replayHistory sends recent public messages posted near loc, oldest first.
// Store failures only cost the replay.
func (o *Orchestrator) replayHistory(sid core.SessionID, loc domain.Location) {
	if o.Store == nil {
		return
	}
	s := o.settings()
	ctx, cancel := context.WithTimeout(context.Background(), s.StoreTimeout)
	defer cancel()
	rows, err := o.Store.QueryRecent(ctx, s.HistoryWindow, s.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("history unavailable")
		return
	}
	msgs := nearby(rows, loc, s.RadiusMeters)
	if len(msgs) == 0 {
		return
	}
	o.Send(sid, core.RecentMessagesEvent{Type: core.EvRecentMessages, Messages: msgs})
}

// NearbyMessages returns public messages within radius of loc from the
// last window, oldest first.
func (o *Orchestrator) NearbyMessages(ctx context.Context, loc domain.Location, radius float64, window time.Duration, limit int) ([]domain.Message, error) {
	if o.Store == nil {
		return []domain.Message{}, nil
	}
	rows, err := o.Store.QueryRecent(ctx, window, limit)
	if err != nil {
		return nil, err
	}
	return nearby(rows, loc, radius), nil
}

func nearby(rows []domain.Message, loc domain.Location, radius float64) []domain.Message {
	out := make([]domain.Message, 0, len(rows))
	for _, m := range rows {
		if strings.TrimSpace(m.SenderName) == "" {
			continue
		}
		if core.Within(loc, m.Location, radius) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}
