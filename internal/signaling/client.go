package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP bodies dominate; 64 KB is
	// comfortably above anything a session description produces.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection to the signaling server.
type Client struct {
	// ID is the opaque connection identifier, unique per live link.
	ID string

	Hub  *Hub
	Conn *websocket.Conn

	// Send is the buffered outbound queue. The write pump is the only
	// goroutine that writes to the websocket.
	Send chan *Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// One ReadPump goroutine runs per connection; it is the connection's only
// reader. On exit the client is unregistered, which resolves the disconnect
// against whichever room it was in.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket read error", "connId", c.ID, "error", err)
			}
			return
		}

		msg.client = c
		c.Hub.Inbound <- &msg
	}
}

// WritePump pumps messages from the hub to the websocket connection and sends
// periodic pings. It is the connection's only writer; it exits when the hub
// closes the Send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Error("websocket write error", "connId", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
