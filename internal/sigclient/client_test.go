package sigclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/signaling"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer upgrades one connection and echoes every JSON message back with
// the sender stamped, mimicking a minimal relay.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg signaling.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			msg.Sender = "server"
			if err := conn.WriteJSON(&msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestClient_ConnectInvalidURL(t *testing.T) {
	c := NewClient("://not-a-url")
	assert.Error(t, c.Connect())
}

func TestClient_ConnectRefused(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")
	assert.Error(t, c.Connect())
}

func TestClient_RoundTrip(t *testing.T) {
	srv := echoServer(t)
	c := NewClient(wsURL(srv))
	require.NoError(t, c.Connect())
	defer c.Close()

	c.Send(&signaling.Message{Event: signaling.EventCreateOrJoin, Room: "r1"})

	select {
	case msg := <-c.Incoming():
		require.NotNil(t, msg)
		assert.Equal(t, signaling.EventCreateOrJoin, msg.Event)
		assert.Equal(t, "r1", msg.Room)
		assert.Equal(t, "server", msg.Sender)
	case <-time.After(2 * time.Second):
		t.Fatal("no echo from server")
	}
}

func TestClient_IncomingClosesOnServerDrop(t *testing.T) {
	srv := echoServer(t)
	c := NewClient(wsURL(srv))
	require.NoError(t, c.Connect())
	defer c.Close()

	srv.CloseClientConnections()

	select {
	case _, open := <-c.Incoming():
		assert.False(t, open, "incoming must close when the transport drops")
	case <-time.After(2 * time.Second):
		t.Fatal("incoming channel did not close")
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	c := NewClient(wsURL(srv))
	require.NoError(t, c.Connect())

	c.Close()
	c.Close()
}
