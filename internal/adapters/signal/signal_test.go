package signal

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*orch.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(time.Hour, 10),
		Limiter:  app.NewRateLimiter(30, time.Minute, time.Hour),
		Policy:   app.SimplePolicy{},
	}
	ctrl := NewSignalWSController(o, Options{PingPeriod: time.Second})
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctrl.HandleSignal(t.Context(), c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, b))
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, ws *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		if m["type"] == typ {
			return m
		}
	}
}

func TestSocketRoundTrip(t *testing.T) {
	o, url := newTestServer(t)
	a := dial(t, url)
	b := dial(t, url)

	send(t, a, map[string]any{"type": "register", "username": "Ann", "latitude": 37.0, "longitude": 127.0})
	expect(t, a, "nearbyUsers")

	send(t, b, map[string]any{"type": "register", "username": "Bob", "latitude": 37.0, "longitude": 127.0001})
	nb := expect(t, b, "nearbyUsers")
	assert.Len(t, nb["users"], 1)
	joined := expect(t, a, "userJoined")
	assert.Equal(t, "Bob", joined["username"])

	send(t, b, map[string]any{"type": "sendMessage", "message": "hello"})
	got := expect(t, a, "newMessage")
	sent := expect(t, b, "messageSent")
	assert.Equal(t, "hello", got["message"])
	assert.Equal(t, got["message"], sent["message"])

	send(t, a, map[string]any{"type": "whoami"})
	me := expect(t, a, "whoami")
	assert.Equal(t, "Ann", me["username"])

	send(t, a, map[string]any{"type": "ping"})
	expect(t, a, "pong")

	require.NoError(t, b.Close())
	left := expect(t, a, "userLeft")
	assert.Equal(t, "Bob", left["username"])
	assert.Eventually(t, func() bool { return len(o.Registry.All()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestSocketErrors(t *testing.T) {
	_, url := newTestServer(t)
	a := dial(t, url)

	send(t, a, map[string]any{"type": "teleport"})
	ev := expect(t, a, "error")
	assert.Equal(t, "Unknown request type.", ev["message"])

	send(t, a, map[string]any{"type": "sendMessage", "message": "hi"})
	ev = expect(t, a, "error")
	assert.Equal(t, "Register before doing that.", ev["message"])

	send(t, a, map[string]any{"type": "joinPrivateRoom", "roomCode": "abc"})
	ev = expect(t, a, "privateRoomError")
	assert.Equal(t, "Register before doing that.", ev["message"])

	send(t, a, map[string]any{"type": "joinPrivateRoom", "roomCode": "ABC123", "username": "Ann", "latitude": 1.0, "longitude": 1.0})
	ev = expect(t, a, "privateRoomError")
	assert.Equal(t, "No private room with that code. Check the code.", ev["message"])

	send(t, a, map[string]any{"type": "createPrivateRoom", "roomCode": "ABC123"})
	created := expect(t, a, "privateRoomJoined")
	assert.Equal(t, "ABC123", created["roomCode"])

	send(t, a, map[string]any{"type": "voteRoomDeletion", "roomCode": "ABC123", "vote": "agree"})
	ev = expect(t, a, "privateRoomError")
	assert.Equal(t, "There is no deletion vote in progress.", ev["message"])

	send(t, a, map[string]any{"type": "leavePrivateRoom", "roomCode": "ABC123"})
	expect(t, a, "privateRoomLeft")
}
