package rtc

import (
	"context"
	"encoding/json"
	"log/slog"

	pion "github.com/pion/webrtc/v4"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/sigclient"
	"github.com/TRISss33/VIDEO-CONFERENCE/internal/signaling"
)

// EventKind enumerates the notifications the engine emits toward the
// application layer.
type EventKind int

const (
	EventCreatedRoom EventKind = iota
	EventJoinedRoom
	EventLeftRoom
	EventKicked
	EventPeerStream
	EventPeerLeft
	EventNotice
	EventUsernames
)

// Event is an upper-layer notification: a room transition, a new remote
// media track, a departed peer, a user-facing notice, or a directory update.
type Event struct {
	Kind      EventKind
	Room      string
	PeerID    string
	Track     *pion.TrackRemote
	Text      string
	Usernames map[string]string
}

// signalSender is the outbound half of the signaling connection.
// *sigclient.Client satisfies it.
type signalSender interface {
	Send(*signaling.Message)
}

// Engine orchestrates peer negotiation for one client: it consumes signaling
// events, maintains one PeerLink per remote participant, and relays
// offer/answer/candidate payloads through the signaling server.
//
// A single goroutine (Run) executes every state transition. Inbound signaling
// events, transport callbacks and public API calls are all funneled onto that
// loop, so PeerLinks progress interleaved but never in parallel.
type Engine struct {
	sig          signalSender
	handler      *sigclient.Handler
	newTransport TransportFactory

	media LocalMedia

	id      string
	room    string
	isAdmin bool

	// isReady is set once at least two members are known to be in the room;
	// no PeerLink is created before that.
	isReady bool

	// initiator records, per remote, whether this side sends the first offer.
	// Assigned by the server on ready fan-out: the side that was already in
	// the room initiates, so exactly one side of any pair ever does.
	initiator map[string]bool

	links map[string]*PeerLink

	tasks  chan task
	events chan Event
	closed chan struct{}
}

type task struct {
	fn    func() error
	reply chan error
}

// NewEngine creates an engine over a signaling connection. The factory is
// invoked once per new PeerLink.
func NewEngine(sig signalSender, handler *sigclient.Handler, factory TransportFactory) *Engine {
	return &Engine{
		sig:          sig,
		handler:      handler,
		newTransport: factory,
		initiator:    make(map[string]bool),
		links:        make(map[string]*PeerLink),
		tasks:        make(chan task, 64),
		events:       make(chan Event, 64),
		closed:       make(chan struct{}),
	}
}

// Events returns the notification channel for the application layer.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run executes the engine's event loop until ctx is cancelled or the
// signaling connection drops. All PeerLinks are torn down before it returns.
func (e *Engine) Run(ctx context.Context) {
	defer func() {
		e.teardown()
		close(e.closed)
	}()

	h := e.handler
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.Done:
			return

		case t := <-e.tasks:
			t.reply <- t.fn()

		case ev := <-h.Created:
			e.id = ev.SelfID
			e.room = ev.Room
			e.isAdmin = true
			slog.Info("room created", "room", ev.Room, "id", e.id)
			e.emit(Event{Kind: EventCreatedRoom, Room: ev.Room})
			e.announce()

		case ev := <-h.Joined:
			e.id = ev.SelfID
			e.room = ev.Room
			e.isReady = true
			slog.Info("room joined", "room", ev.Room, "id", e.id)
			e.emit(Event{Kind: EventJoinedRoom, Room: ev.Room})
			e.announce()

		case <-h.Join:
			// Someone is joining our room; at least two members now.
			e.isReady = true

		case p := <-h.Ready:
			if _, exists := e.links[p.PeerID]; exists {
				// Never flip the initiator role for a peer we already
				// negotiate with; that is how offer glare starts.
				slog.Debug("ready for known peer ignored", "peer", p.PeerID)
				continue
			}
			e.initiator[p.PeerID] = p.Initiator

		case room := <-h.LeftRoom:
			e.teardown()
			e.emit(Event{Kind: EventLeftRoom, Room: room})

		case target := <-h.Kicked:
			if target == e.id {
				e.teardown()
				e.emit(Event{Kind: EventKicked})
			}

		case s := <-h.Signals:
			e.handleSignal(s.From, s.Signal)

		case names := <-h.Usernames:
			e.emit(Event{Kind: EventUsernames, Usernames: names})

		case text := <-h.Errors:
			e.emit(Event{Kind: EventNotice, Text: text})
		}
	}
}

// call runs fn on the event loop and waits for its result.
func (e *Engine) call(fn func() error) error {
	t := task{fn: fn, reply: make(chan error, 1)}
	select {
	case e.tasks <- t:
	case <-e.closed:
		return ErrEngineClosed
	}
	select {
	case err := <-t.reply:
		return err
	case <-e.closed:
		return ErrEngineClosed
	}
}

// post schedules fn on the event loop without waiting. Used by transport
// callbacks, which fire on pion goroutines.
func (e *Engine) post(fn func()) {
	t := task{fn: func() error { fn(); return nil }, reply: make(chan error, 1)}
	select {
	case e.tasks <- t:
	case <-e.closed:
	}
}

// JoinRoom asks the registry to create or join the named room.
func (e *Engine) JoinRoom(room string) error {
	return e.call(func() error {
		if room == "" {
			return ErrRoomRequired
		}
		if e.room != "" {
			return ErrInRoom
		}
		e.sig.Send(&signaling.Message{Event: signaling.EventCreateOrJoin, Room: room})
		return nil
	})
}

// LeaveRoom leaves the current room, synchronously tearing down every
// PeerLink before the leave reaches the server.
func (e *Engine) LeaveRoom() error {
	return e.call(func() error {
		if e.room == "" {
			return ErrNoRoom
		}
		room := e.room
		e.teardown()
		e.sig.Send(&signaling.Message{Event: signaling.EventLeaveRoom, Room: room})
		return nil
	})
}

// Kick asks the server to remove a peer from the room. Admin only; the
// server enforces the authorization, this guard just fails fast.
func (e *Engine) Kick(peerID string) error {
	return e.call(func() error {
		if e.room == "" {
			return ErrNoRoom
		}
		if !e.isAdmin {
			return ErrNotAdmin
		}
		e.sig.Send(&signaling.Message{
			Event:  signaling.EventKickout,
			Room:   e.room,
			Target: peerID,
		})
		return nil
	})
}

// AttachMedia hands the engine the local media handle. If a room was already
// joined, the stream is announced to the other members.
func (e *Engine) AttachMedia(media LocalMedia) error {
	return e.call(func() error {
		e.media = media
		e.announce()
		return nil
	})
}

// SetAudioEnabled toggles the mute flag on the local media.
func (e *Engine) SetAudioEnabled(enabled bool) error {
	return e.call(func() error {
		if e.media == nil {
			return ErrMediaNotReady
		}
		e.media.SetAudioEnabled(enabled)
		return nil
	})
}

// SetUsername publishes this client's display name to the directory.
func (e *Engine) SetUsername(name string) error {
	return e.call(func() error {
		e.sig.Send(&signaling.Message{
			Event:   signaling.EventSetUsername,
			Payload: marshal(signaling.UsernamePayload{Username: name}),
		})
		return nil
	})
}

// Participants returns the remotes with a live PeerLink.
func (e *Engine) Participants() []string {
	var out []string
	e.call(func() error {
		for id := range e.links {
			out = append(out, id)
		}
		return nil
	})
	return out
}

// announce broadcasts gotstream to the room, the negotiation kick-off that
// tells every other member this client's media is ready.
func (e *Engine) announce() {
	if e.media == nil || e.room == "" {
		return
	}
	e.sig.Send(&signaling.Message{
		Event:   signaling.EventMessage,
		Room:    e.room,
		Payload: marshal(signaling.Signal{Type: signaling.SignalGotStream}),
	})
}

func (e *Engine) handleSignal(from string, sig signaling.Signal) {
	if sig.Type == signaling.SignalLeave {
		e.removePeer(from)
		return
	}

	link := e.links[from]

	// Duplicate suppression: once the transport reports fully connected,
	// renegotiation attempts are ignored. Candidates stay welcome, they are
	// idempotent to reapply.
	if link != nil && link.transportConnected() && sig.Type != signaling.SignalCandidate {
		slog.Debug("ignore signal for connected peer", "peer", from, "type", sig.Type)
		return
	}

	switch sig.Type {
	case signaling.SignalGotStream:
		if link != nil {
			e.notify(newPeerError("connect", from, ErrLinkExists).Error())
			return
		}
		e.connect(from)

	case signaling.SignalOffer:
		if link == nil {
			link = e.createLink(from)
			if link == nil {
				return
			}
		}
		answer, err := link.handleOffer(pion.SessionDescription{
			Type: pion.SDPTypeOffer,
			SDP:  sig.SDP,
		})
		if err != nil {
			slog.Error("offer failed", "peer", from, "error", err)
			e.notify(err.Error())
			return
		}
		e.sendSignal(from, signaling.Signal{Type: signaling.SignalAnswer, SDP: answer.SDP})

	case signaling.SignalAnswer:
		if link == nil {
			slog.Warn("answer without link", "peer", from)
			return
		}
		if err := link.handleAnswer(pion.SessionDescription{
			Type: pion.SDPTypeAnswer,
			SDP:  sig.SDP,
		}); err != nil {
			slog.Error("answer failed", "peer", from, "error", err)
			e.notify(err.Error())
		}

	case signaling.SignalCandidate:
		if link == nil {
			// A candidate cannot usefully arrive before any description
			// exchange exists; drop it.
			slog.Debug("candidate without link dropped", "peer", from)
			return
		}
		init := pion.ICECandidateInit{
			Candidate:     sig.Candidate,
			SDPMLineIndex: sig.Label,
		}
		if sig.ID != "" {
			mid := sig.ID
			init.SDPMid = &mid
		}
		if err := link.addCandidate(init); err != nil {
			slog.Error("candidate failed", "peer", from, "error", err)
		}

	default:
		slog.Warn("unknown signal", "peer", from, "type", sig.Type)
	}
}

// connect runs the guarded entry into negotiation with one remote: local
// media must be attached and the room must be ready, otherwise the attempt
// aborts with a warning and no PeerLink is created.
func (e *Engine) connect(remote string) {
	link := e.createLink(remote)
	if link == nil {
		return
	}
	if e.initiator[remote] {
		offer, err := link.sendOffer()
		if err != nil {
			slog.Error("offer failed", "peer", remote, "error", err)
			e.notify(err.Error())
			return
		}
		e.sendSignal(remote, signaling.Signal{Type: signaling.SignalOffer, SDP: offer.SDP})
	}
}

func (e *Engine) createLink(remote string) *PeerLink {
	if e.media == nil || !e.isReady {
		slog.Warn("not connecting", "peer", remote, "mediaReady", e.media != nil, "roomReady", e.isReady)
		e.notify("not ready to connect: local media or room not ready")
		return nil
	}
	if _, exists := e.links[remote]; exists {
		e.notify(newPeerError("connect", remote, ErrLinkExists).Error())
		return nil
	}

	transport, err := e.newTransport()
	if err != nil {
		slog.Error("transport creation failed", "peer", remote, "error", err)
		e.notify(err.Error())
		return nil
	}

	transport.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		e.post(func() { e.sendCandidate(remote, init) })
	})
	transport.OnTrack(func(track *pion.TrackRemote) {
		e.post(func() { e.gotRemoteTrack(remote, track) })
	})
	transport.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		e.post(func() {
			if state == pion.PeerConnectionStateFailed {
				slog.Warn("peer transport failed", "peer", remote)
			}
		})
	})

	link := newPeerLink(remote, transport)
	if err := link.attachMedia(e.media); err != nil {
		link.close()
		slog.Error("attach media failed", "peer", remote, "error", err)
		e.notify(err.Error())
		return nil
	}
	e.links[remote] = link
	slog.Info("peer link created", "peer", remote, "initiator", e.initiator[remote])
	return link
}

func (e *Engine) sendCandidate(remote string, init pion.ICECandidateInit) {
	if _, ok := e.links[remote]; !ok {
		return
	}
	sig := signaling.Signal{
		Type:      signaling.SignalCandidate,
		Candidate: init.Candidate,
		Label:     init.SDPMLineIndex,
	}
	if init.SDPMid != nil {
		sig.ID = *init.SDPMid
	}
	e.sendSignal(remote, sig)
}

func (e *Engine) gotRemoteTrack(remote string, track *pion.TrackRemote) {
	link, ok := e.links[remote]
	if !ok {
		return
	}
	if link.remoteAnnounced && link.remoteStreamID == track.StreamID() {
		// One remote handle per peer; further tracks of the same stream are
		// not re-announced.
		return
	}
	link.remoteAnnounced = true
	link.remoteStreamID = track.StreamID()
	e.emit(Event{Kind: EventPeerStream, PeerID: remote, Track: track})
}

func (e *Engine) sendSignal(target string, sig signaling.Signal) {
	e.sig.Send(&signaling.Message{
		Event:   signaling.EventMessage,
		Target:  target,
		Room:    e.room,
		Payload: marshal(sig),
	})
}

// removePeer closes the PeerLink for a departed remote and tells the
// application layer so its media can be dropped.
func (e *Engine) removePeer(remote string) {
	link, ok := e.links[remote]
	if !ok {
		return
	}
	link.close()
	delete(e.links, remote)
	delete(e.initiator, remote)
	slog.Info("peer link closed", "peer", remote)
	e.emit(Event{Kind: EventPeerLeft, PeerID: remote})
}

// teardown closes every PeerLink and resets room state. The media handle
// stays attached; the application owns its lifecycle.
func (e *Engine) teardown() {
	for remote, link := range e.links {
		link.close()
		delete(e.links, remote)
	}
	e.initiator = make(map[string]bool)
	e.room = ""
	e.isAdmin = false
	e.isReady = false
}

func (e *Engine) notify(text string) {
	e.emit(Event{Kind: EventNotice, Text: text})
}

// emit queues an event for the application, dropping when the consumer has
// fallen far behind rather than stalling negotiation.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		slog.Warn("event dropped, consumer too slow", "kind", ev.Kind)
	}
}

func marshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
