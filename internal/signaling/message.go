package signaling

import "encoding/json"

// Event names for all WebSocket messages exchanged between clients and the
// signaling server. Client-to-server events are handled by the Hub; the rest
// are emitted by the Hub toward clients.
const (
	EventCreateOrJoin = "create-or-join"
	EventLeaveRoom    = "leave-room"
	EventMessage      = "message"
	EventKickout      = "kickout"
	EventSetUsername  = "set-username"

	EventCreated   = "created"
	EventJoined    = "joined"
	EventJoin      = "join"
	EventReady     = "ready"
	EventLeftRoom  = "left-room"
	EventUsernames = "usernames"
	EventError     = "error"
)

// Message is the JSON envelope for every signaling event.
//
// For EventCreated and EventJoined the Sender field carries the connection id
// the server assigned to the receiving client itself; for relayed EventMessage
// it carries the id of the peer that sent the payload. The server stamps
// Sender on every outbound message, client-supplied values are ignored.
type Message struct {
	Event   string          `json:"event"`
	Room    string          `json:"room,omitempty"`
	Target  string          `json:"target,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the connection that sent the message. Set by the read pump,
	// used internally by the Hub, never serialized.
	client *Client `json:"-"`
}

// SignalType tags the negotiation payload relayed inside EventMessage.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
	SignalLeave     SignalType = "leave"
	SignalGotStream SignalType = "gotstream"
)

// Valid reports whether t is one of the known signal tags. The relay checks
// the tag before routing but never inspects the rest of the payload.
func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalCandidate, SignalLeave, SignalGotStream:
		return true
	}
	return false
}

// Signal is the negotiation payload exchanged between two peers. The relay
// treats it as opaque beyond the Type tag; only the rtc package interprets it.
type Signal struct {
	Type SignalType `json:"type"`

	// SDP carries the session description for offer and answer signals.
	SDP string `json:"sdp,omitempty"`

	// Candidate, Label and ID describe a single ICE candidate: the candidate
	// string, its media line index and its media stream identification tag.
	Candidate string  `json:"candidate,omitempty"`
	Label     *uint16 `json:"label,omitempty"`
	ID        string  `json:"id,omitempty"`
}

// ReadyPayload introduces one peer to another during join fan-out. Initiator
// is true on the side that was already in the room: join order is serialized
// by the registry, so exactly one side of every pair is told to initiate.
type ReadyPayload struct {
	PeerID    string `json:"peerId"`
	Initiator bool   `json:"initiator"`
}

// UsernamePayload carries a client's self-reported display name.
type UsernamePayload struct {
	Username string `json:"username"`
}

// ErrorPayload carries a user-facing error message from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// All payload types marshal unconditionally; a failure here is a bug.
		panic(err)
	}
	return data
}

func errorMessage(text string) *Message {
	return &Message{
		Event:   EventError,
		Payload: mustMarshal(ErrorPayload{Error: text}),
	}
}
