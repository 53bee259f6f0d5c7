package rtc

import (
	pion "github.com/pion/webrtc/v4"
)

// LinkState enumerates the negotiation states of one PeerLink.
type LinkState int

const (
	StateIdle LinkState = iota
	StateConnecting
	StateOfferSent
	StateAnswerPending
	StateConnected
	StateClosed
)

func (s LinkState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOfferSent:
		return "offer-sent"
	case StateAnswerPending:
		return "answer-pending"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// PeerLink is the negotiation and transport state against exactly one remote
// peer. All methods run on the owning engine's event loop, so there is no
// internal locking.
//
// Connected means the description exchange completed; transport-level
// connectivity is tracked separately via transportConnected, which gates
// duplicate-message suppression.
type PeerLink struct {
	remote    string
	state     LinkState
	transport PeerTransport
	senders   []TrackSender

	// remoteAnnounced and remoteStreamID deduplicate ontrack callbacks: one
	// remote handle per peer, repeat tracks for the same stream are not
	// re-announced.
	remoteAnnounced bool
	remoteStreamID  string
}

func newPeerLink(remote string, transport PeerTransport) *PeerLink {
	return &PeerLink{
		remote:    remote,
		state:     StateConnecting,
		transport: transport,
	}
}

// Remote returns the remote connection id this link negotiates with.
func (l *PeerLink) Remote() string {
	return l.remote
}

// State returns the current negotiation state.
func (l *PeerLink) State() LinkState {
	return l.state
}

// attachMedia adds every local track to the transport.
func (l *PeerLink) attachMedia(media LocalMedia) error {
	for _, track := range media.Tracks() {
		sender, err := l.transport.AddTrack(track)
		if err != nil {
			return newPeerError("attach media", l.remote, err)
		}
		l.senders = append(l.senders, sender)
	}
	return nil
}

// sendOffer creates the local offer and applies it. Valid only while
// Connecting; the initiator calls it right after attaching media.
func (l *PeerLink) sendOffer() (pion.SessionDescription, error) {
	if l.state != StateConnecting {
		return pion.SessionDescription{}, newPeerError("send offer", l.remote, ErrBadState)
	}
	offer, err := l.transport.CreateOffer()
	if err != nil {
		return pion.SessionDescription{}, newPeerError("create offer", l.remote, err)
	}
	if err := l.transport.SetLocalDescription(offer); err != nil {
		return pion.SessionDescription{}, newPeerError("set local description", l.remote, err)
	}
	l.state = StateOfferSent
	return offer, nil
}

// handleOffer applies a remote offer and produces the answer. The link moves
// through AnswerPending to Connected once the local description is set. A
// failure leaves the link in its prior state.
func (l *PeerLink) handleOffer(offer pion.SessionDescription) (pion.SessionDescription, error) {
	if l.state == StateClosed {
		return pion.SessionDescription{}, newPeerError("handle offer", l.remote, ErrBadState)
	}
	if err := l.transport.SetRemoteDescription(offer); err != nil {
		return pion.SessionDescription{}, newPeerError("set remote description", l.remote, err)
	}
	l.state = StateAnswerPending
	answer, err := l.transport.CreateAnswer()
	if err != nil {
		return pion.SessionDescription{}, newPeerError("create answer", l.remote, err)
	}
	if err := l.transport.SetLocalDescription(answer); err != nil {
		return pion.SessionDescription{}, newPeerError("set local description", l.remote, err)
	}
	l.state = StateConnected
	return answer, nil
}

// handleAnswer applies a remote answer. Only valid while OfferSent.
func (l *PeerLink) handleAnswer(answer pion.SessionDescription) error {
	if l.state != StateOfferSent {
		return newPeerError("handle answer", l.remote, ErrBadState)
	}
	if err := l.transport.SetRemoteDescription(answer); err != nil {
		return newPeerError("set remote description", l.remote, err)
	}
	l.state = StateConnected
	return nil
}

// addCandidate applies a relayed ICE candidate. Accepted in any live state;
// candidate buffering is the transport primitive's concern.
func (l *PeerLink) addCandidate(init pion.ICECandidateInit) error {
	if l.state == StateClosed {
		return newPeerError("add candidate", l.remote, ErrBadState)
	}
	if err := l.transport.AddICECandidate(init); err != nil {
		return newPeerError("add candidate", l.remote, err)
	}
	return nil
}

// transportConnected reports whether the underlying transport is fully
// connected. Once true, further offer/answer/gotstream messages for this
// remote are ignored.
func (l *PeerLink) transportConnected() bool {
	return l.transport.ConnectionState() == pion.PeerConnectionStateConnected
}

// close tears the link down. Closed is terminal and re-entrant from any
// state.
func (l *PeerLink) close() {
	if l.state == StateClosed {
		return
	}
	l.state = StateClosed
	l.transport.Close()
}
