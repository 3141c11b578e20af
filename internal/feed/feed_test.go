package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTracker struct {
	connected    atomic.Int32
	disconnected atomic.Int32
}

func (c *countingTracker) SubscriberConnected()    { c.connected.Add(1) }
func (c *countingTracker) SubscriberDisconnected() { c.disconnected.Add(1) }

func startHub(t *testing.T) (*Hub, *countingTracker, string) {
	t.Helper()

	tracker := &countingTracker{}
	hub := NewHub(nil, tracker)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "test-subscriber")
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return hub, tracker, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := readMessage(t, conn)
	require.Equal(t, "connected", welcome.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	hub, tracker, url := startHub(t)

	first := dial(t, url)
	second := dial(t, url)
	assert.Equal(t, 2, hub.Count())
	assert.Equal(t, int32(2), tracker.connected.Load())

	require.NoError(t, hub.Broadcast("payment", map[string]int{"amount": 10}))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, "payment", msg.Type)
		assert.JSONEq(t, `{"amount":10}`, string(msg.Payload))
	}
}

func TestHub_PingPong(t *testing.T) {
	_, _, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "subscribe"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "UNKNOWN_MESSAGE", payload["code"])
}

func TestHub_Disconnect(t *testing.T) {
	hub, tracker, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), tracker.disconnected.Load())

	assert.NoError(t, hub.Broadcast("payment", nil), "broadcasting with no subscribers is fine")
}
