package orch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var errFull = errors.New("queue full")

// recConn records every frame delivered to one connection.
type recConn struct {
	t *testing.T

	mu        sync.Mutex
	frames    []core.Frame
	full      bool
	cancelled bool
}

func (c *recConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errFull
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recConn) Close() {}

func (c *recConn) events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(c.t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *recConn) ofType(typ string) []map[string]any {
	var out []map[string]any
	for _, e := range c.events() {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

func (c *recConn) types() []string {
	var out []string
	for _, e := range c.events() {
		out = append(out, e["type"].(string))
	}
	return out
}

func (c *recConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// fakeStore keeps messages in a slice and can be told to fail.
type fakeStore struct {
	mu   sync.Mutex
	rows []domain.Message
	err  error
}

func (s *fakeStore) Append(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, msg)
	return nil
}

func (s *fakeStore) QueryRecent(_ context.Context, _ time.Duration, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := slices.Clone(s.rows)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type harness struct {
	t     *testing.T
	o     *Orchestrator
	clk   *fakeClock
	store *fakeStore
	conns map[core.SessionID]*recConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	st := &fakeStore{}
	o := &Orchestrator{
		Registry: app.NewRegistry().WithClock(clk.Now),
		Rooms:    app.NewRoomManager(time.Hour, 100).WithClock(clk.Now),
		Limiter:  app.NewRateLimiter(30, time.Minute, time.Hour).WithClock(clk.Now),
		Store:    st,
		Policy:   app.SimplePolicy{},
		Now:      clk.Now,
	}
	return &harness{t: t, o: o, clk: clk, store: st, conns: map[core.SessionID]*recConn{}}
}

func (h *harness) connect(sid core.SessionID) *recConn {
	c := &recConn{t: h.t}
	h.o.OnConnect(sid, c, func() {
		c.mu.Lock()
		c.cancelled = true
		c.mu.Unlock()
	})
	h.conns[sid] = c
	return c
}

// join connects sid and registers it at lat/lon.
func (h *harness) join(sid core.SessionID, name string, lat, lon float64) *recConn {
	h.t.Helper()
	c := h.connect(sid)
	require.NoError(h.t, h.o.Register(sid, name, domain.Location{Latitude: lat, Longitude: lon}))
	return c
}

func (h *harness) roomExists(code domain.RoomCode) bool {
	_, ok := h.o.Rooms.Members(code)
	return ok
}

func (h *harness) resetAll() {
	for _, c := range h.conns {
		c.reset()
	}
}
