package sigclient

import (
	"encoding/json"
	"log/slog"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/signaling"
)

// RoomEvent reports a created or joined room together with the connection id
// the server assigned to this client.
type RoomEvent struct {
	Room   string
	SelfID string
}

// PeerSignal is a negotiation payload relayed from one specific peer.
type PeerSignal struct {
	From   string
	Signal signaling.Signal
}

// Handler routes incoming signaling messages to typed channels, one per
// event. The rtc engine selects over these channels in its event loop.
type Handler struct {
	incoming <-chan *signaling.Message

	Created   chan RoomEvent
	Joined    chan RoomEvent
	Join      chan string
	Ready     chan signaling.ReadyPayload
	LeftRoom  chan string
	Kicked    chan string
	Signals   chan PeerSignal
	Usernames chan map[string]string
	Errors    chan string

	// Done is closed when the incoming stream ends (transport drop).
	Done chan struct{}
}

// NewHandler creates a handler over a stream of inbound messages, normally
// Client.Incoming().
func NewHandler(incoming <-chan *signaling.Message) *Handler {
	return &Handler{
		incoming:  incoming,
		Created:   make(chan RoomEvent, 1),
		Joined:    make(chan RoomEvent, 1),
		Join:      make(chan string, 4),
		Ready:     make(chan signaling.ReadyPayload, 16),
		LeftRoom:  make(chan string, 1),
		Kicked:    make(chan string, 1),
		Signals:   make(chan PeerSignal, 32),
		Usernames: make(chan map[string]string, 4),
		Errors:    make(chan string, 4),
		Done:      make(chan struct{}),
	}
}

// Start consumes the incoming stream until it is closed. Run it in its own
// goroutine.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.incoming {
		switch msg.Event {

		case signaling.EventCreated:
			h.Created <- RoomEvent{Room: msg.Room, SelfID: msg.Sender}

		case signaling.EventJoined:
			h.Joined <- RoomEvent{Room: msg.Room, SelfID: msg.Sender}

		case signaling.EventJoin:
			h.Join <- msg.Room

		case signaling.EventReady:
			var p signaling.ReadyPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				slog.Warn("malformed ready payload", "error", err)
				continue
			}
			h.Ready <- p

		case signaling.EventLeftRoom:
			h.LeftRoom <- msg.Room

		case signaling.EventKickout:
			h.Kicked <- msg.Target

		case signaling.EventMessage:
			var sig signaling.Signal
			if err := json.Unmarshal(msg.Payload, &sig); err != nil {
				slog.Warn("malformed signal payload", "from", msg.Sender, "error", err)
				continue
			}
			h.Signals <- PeerSignal{From: msg.Sender, Signal: sig}

		case signaling.EventUsernames:
			var names map[string]string
			if err := json.Unmarshal(msg.Payload, &names); err != nil {
				slog.Warn("malformed usernames payload", "error", err)
				continue
			}
			h.Usernames <- names

		case signaling.EventError:
			var p signaling.ErrorPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				p.Error = "unknown error from server"
			}
			h.Errors <- p.Error

		default:
			slog.Debug("unknown event from server", "event", msg.Event)
		}
	}
}
