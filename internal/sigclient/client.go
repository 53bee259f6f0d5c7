// Package sigclient maintains a client's connection to the signaling server:
// a websocket with read/write pumps plus a handler that routes inbound events
// to typed channels.
package sigclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Message
	outgoing  chan *signaling.Message
	done      chan struct{}
	closed    bool
}

// NewClient creates a signaling client for the given websocket URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *signaling.Message, 32),
		outgoing:  make(chan *signaling.Message, 32),
		done:      make(chan struct{}, 1),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads messages from the WebSocket connection. The incoming channel
// is closed when the connection drops, which ends the handler loop.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- &msg
	}
}

// writePump writes messages to the WebSocket connection and sends periodic
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a message for the server.
func (c *Client) Send(msg *signaling.Message) {
	c.outgoing <- msg
}

// Incoming returns the channel of messages from the server.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close shuts down the WebSocket connection.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
