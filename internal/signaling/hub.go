package signaling

import (
	"encoding/json"
	"errors"
	"log/slog"
)

// Hub is the central brain of the signaling server. A single goroutine runs
// all room transitions and message routing: client registration, room
// create/join/leave, kicks, disconnects and payload relay all funnel through
// Run's select loop, so no two mutations ever race. Membership bookkeeping
// itself lives in the Registry, which stays directly testable without any
// websocket plumbing.
type Hub struct {
	registry *Registry
	metrics  *Metrics

	// clients maps connection ids to live connections, the routing table for
	// targeted delivery.
	clients map[string]*Client

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients on transport drop.
	Unregister chan *Client

	// Inbound carries every message read from any client.
	Inbound chan *Message
}

// NewHub creates a Hub over the given registry and metrics.
func NewHub(registry *Registry, metrics *Metrics) *Hub {
	return &Hub{
		registry:   registry,
		metrics:    metrics,
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
	}
}

// Run starts the hub's processing loop. It never returns; run it in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client.ID] = client
			h.metrics.ConnectedClients.Inc()
			slog.Info("client registered", "connId", client.ID)

		case client := <-h.Unregister:
			h.disconnect(client)

		case msg := <-h.Inbound:
			h.dispatch(msg)
		}
	}
}

func (h *Hub) dispatch(msg *Message) {
	c := msg.client
	slog.Debug("inbound event", "event", msg.Event, "connId", c.ID, "room", msg.Room)

	switch msg.Event {
	case EventCreateOrJoin:
		h.createOrJoin(c, msg.Room)

	case EventLeaveRoom:
		h.leaveRoom(c, msg.Room)

	case EventMessage:
		h.relay(c, msg)

	case EventKickout:
		h.kickout(c, msg.Room, msg.Target)

	case EventSetUsername:
		h.setUsername(c, msg.Payload)

	default:
		slog.Warn("unknown event", "event", msg.Event, "connId", c.ID)
	}
}

// createOrJoin runs the room join transition and the pairwise ready fan-out:
// each of the K existing members learns about the newcomer, and the newcomer
// learns about each of them. Initiator assignment rides on the ready payload:
// the side already in the room initiates, so exactly one side of every pair
// ever sends the first offer.
func (h *Hub) createOrJoin(c *Client, roomID string) {
	if roomID == "" {
		h.sendTo(c.ID, errorMessage("room id required"))
		return
	}
	if current, ok := h.registry.RoomOf(c.ID); ok && current != roomID {
		h.sendTo(c.ID, errorMessage("leave the current room before joining another"))
		return
	}

	result, existing := h.registry.CreateOrJoin(roomID, c.ID)
	h.updateRoomGauge()

	if result == JoinCreated {
		slog.Info("room created", "room", roomID, "connId", c.ID)
		h.sendTo(c.ID, &Message{Event: EventCreated, Room: roomID, Sender: c.ID})
		return
	}

	slog.Info("room joined", "room", roomID, "connId", c.ID, "members", len(existing)+1)
	h.sendTo(c.ID, &Message{Event: EventJoined, Room: roomID, Sender: c.ID})

	for _, id := range existing {
		h.sendTo(id, &Message{Event: EventJoin, Room: roomID})
		h.sendTo(id, &Message{
			Event:   EventReady,
			Room:    roomID,
			Payload: mustMarshal(ReadyPayload{PeerID: c.ID, Initiator: true}),
		})
		h.sendTo(c.ID, &Message{
			Event:   EventReady,
			Room:    roomID,
			Payload: mustMarshal(ReadyPayload{PeerID: id, Initiator: false}),
		})
	}
}

func (h *Hub) leaveRoom(c *Client, roomID string) {
	remaining, removed := h.registry.Leave(roomID, c.ID)
	h.updateRoomGauge()

	// Leaving is idempotent: the leaver is always acknowledged, the room is
	// only notified when membership actually changed.
	h.sendTo(c.ID, &Message{Event: EventLeftRoom, Room: roomID})
	if removed {
		slog.Info("room left", "room", roomID, "connId", c.ID)
		h.broadcastLeave(remaining, c.ID)
	}
}

// relay routes a negotiation payload, targeted when Target is set, otherwise
// to every other member of the sender's room. Only the type tag is validated;
// the payload is never interpreted. Delivery to a vanished connection is
// dropped silently: relay is best-effort by design.
func (h *Hub) relay(c *Client, msg *Message) {
	var sig Signal
	if err := json.Unmarshal(msg.Payload, &sig); err != nil || !sig.Type.Valid() {
		h.sendTo(c.ID, errorMessage("unknown signal type"))
		return
	}

	out := &Message{Event: EventMessage, Sender: c.ID, Payload: msg.Payload}

	if msg.Target != "" {
		h.sendTo(msg.Target, out)
		return
	}

	roomID := msg.Room
	if roomID == "" {
		var ok bool
		if roomID, ok = h.registry.RoomOf(c.ID); !ok {
			h.sendTo(c.ID, errorMessage("join a room before sending messages"))
			return
		}
	}
	for _, id := range h.registry.Members(roomID) {
		if id != c.ID {
			h.sendTo(id, out)
		}
	}
}

func (h *Hub) kickout(c *Client, roomID, targetID string) {
	remaining, err := h.registry.Kick(roomID, c.ID, targetID)
	switch {
	case errors.Is(err, ErrNotAdmin):
		h.sendTo(c.ID, errorMessage("not an admin of this room"))
		return
	case err != nil:
		h.sendTo(c.ID, errorMessage(err.Error()))
		return
	}
	h.updateRoomGauge()
	slog.Info("member kicked", "room", roomID, "admin", c.ID, "target", targetID)

	// The target gets a dedicated kickout; the rest of the room sees an
	// ordinary leave for it.
	h.sendTo(targetID, &Message{Event: EventKickout, Room: roomID, Target: targetID})
	h.broadcastLeave(remaining, targetID)
}

func (h *Hub) setUsername(c *Client, payload json.RawMessage) {
	var p UsernamePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Username == "" {
		h.sendTo(c.ID, errorMessage("username required"))
		return
	}
	h.registry.SetName(c.ID, p.Username)
	h.broadcastUsernames()
}

func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	h.metrics.ConnectedClients.Dec()

	roomID, remaining, wasMember := h.registry.Disconnect(c.ID)
	h.updateRoomGauge()
	if wasMember {
		slog.Info("client disconnected from room", "room", roomID, "connId", c.ID)
		h.broadcastLeave(remaining, c.ID)
	} else {
		slog.Info("client disconnected", "connId", c.ID)
	}
	h.broadcastUsernames()

	// Stops the write pump.
	close(c.Send)
}

// broadcastLeave tells members that leaver is gone, as a relay-level leave
// signal so peer links tear down the same way for explicit leaves, kicks and
// transport drops.
func (h *Hub) broadcastLeave(members []string, leaver string) {
	out := &Message{
		Event:   EventMessage,
		Sender:  leaver,
		Payload: mustMarshal(Signal{Type: SignalLeave}),
	}
	for _, id := range members {
		if id != leaver {
			h.sendTo(id, out)
		}
	}
}

// broadcastUsernames pushes the whole directory to every connection.
func (h *Hub) broadcastUsernames() {
	out := &Message{Event: EventUsernames, Payload: mustMarshal(h.registry.Names())}
	for id := range h.clients {
		h.sendTo(id, out)
	}
}

// sendTo queues msg for one connection. Unknown targets and full send queues
// are dropped without erroring the sender.
func (h *Hub) sendTo(connID string, msg *Message) {
	client, ok := h.clients[connID]
	if !ok {
		h.metrics.DroppedMessages.Inc()
		slog.Debug("drop message for unknown connection", "connId", connID, "event", msg.Event)
		return
	}
	select {
	case client.Send <- msg:
		h.metrics.RelayedMessages.Inc()
	default:
		h.metrics.DroppedMessages.Inc()
		slog.Warn("drop message, send queue full", "connId", connID, "event", msg.Event)
	}
}

func (h *Hub) updateRoomGauge() {
	rooms, _ := h.registry.Stats()
	h.metrics.ActiveRooms.Set(float64(rooms))
}
