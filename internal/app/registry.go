package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Signal core.SignalConnection
	Cancel context.CancelFunc
	User   *domain.User
}

// Registry is the authoritative map of live connections: the transport of
// each socket and, once registered, its presence (name, location, last seen).
type Registry struct {
	mu         sync.RWMutex
	sessions   map[core.SessionID]*sessionEntry
	maxNameLen int
	now        Clock
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[core.SessionID]*sessionEntry),
		maxNameLen: domain.MaxUsernameLen,
		now:        time.Now,
	}
}

func (r *Registry) WithClock(now Clock) *Registry {
	r.now = now
	return r
}

func (r *Registry) WithMaxNameLen(n int) *Registry {
	if n > 0 {
		r.maxNameLen = n
	}
	return r
}

func (r *Registry) BindSignal(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Signal, e.Cancel = conn, cancel
	} else {
		r.sessions[sid] = &sessionEntry{Signal: conn, Cancel: cancel}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) Signal(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Signal == nil {
		return nil, false
	}
	return e.Signal, true
}

// Register validates and stores the presence of sid, replacing any earlier one.
func (r *Registry) Register(sid core.SessionID, name string, loc domain.Location) (domain.User, error) {
	u := &domain.User{ID: domain.UserID(sid)}
	if err := u.SetUsername(name, r.maxNameLen); err != nil {
		return domain.User{}, err
	}
	if err := u.Move(loc, r.now()); err != nil {
		return domain.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.User = u
	} else {
		r.sessions[sid] = &sessionEntry{User: u}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", u.Username).Msg("registered user")
	return *u, nil
}

func (r *Registry) UpdateLocation(sid core.SessionID, loc domain.Location) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.User == nil {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrUnknownConnection, sid)
	}
	if err := e.User.Move(loc, r.now()); err != nil {
		return domain.User{}, err
	}
	return *e.User, nil
}

func (r *Registry) Get(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.User == nil {
		return domain.User{}, false
	}
	return *e.User, true
}

// All returns copies of every registered user.
func (r *Registry) All() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.User != nil {
			out = append(out, *e.User)
		}
	}
	return out
}

// FindByUsername matches a raw display name against stored (escaped) names.
func (r *Registry) FindByUsername(name string) (domain.User, bool) {
	want := domain.Escape(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.sessions {
		if e.User != nil && e.User.Username == want {
			return *e.User, true
		}
	}
	return domain.User{}, false
}

// Remove drops the presence of sid. Idempotent.
func (r *Registry) Remove(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.User = nil
	}
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
