package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Signaling carries no credentials and browsers enforce their own media
	// permissions, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades requests to websocket
// connections and hands them to the hub.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "error", err)
			return
		}

		client := &signaling.Client{
			ID:   uuid.New().String(),
			Hub:  hub,
			Conn: conn,
			Send: make(chan *signaling.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
