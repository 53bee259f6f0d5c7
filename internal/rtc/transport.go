package rtc

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/config"
)

// PeerTransport abstracts the peer-connection primitive behind each PeerLink.
// Production code wraps a pion PeerConnection; tests substitute a fake so the
// state machine can be driven without ICE or a network.
//
// STUN/TURN mechanics, candidate gathering and DTLS all live behind this
// interface; the engine only moves descriptions and opaque candidates across
// it.
type PeerTransport interface {
	CreateOffer() (pion.SessionDescription, error)
	CreateAnswer() (pion.SessionDescription, error)
	SetLocalDescription(pion.SessionDescription) error
	SetRemoteDescription(pion.SessionDescription) error
	AddICECandidate(pion.ICECandidateInit) error
	AddTrack(pion.TrackLocal) (TrackSender, error)
	Senders() []TrackSender
	OnICECandidate(func(*pion.ICECandidate))
	OnTrack(func(*pion.TrackRemote))
	OnConnectionStateChange(func(pion.PeerConnectionState))
	ConnectionState() pion.PeerConnectionState
	Close() error
}

// TrackSender is one outbound track attachment. ReplaceTrack swaps the track
// without renegotiation, valid for same-kind replacements.
type TrackSender interface {
	Track() pion.TrackLocal
	ReplaceTrack(pion.TrackLocal) error
}

// TransportFactory creates the transport for a new PeerLink.
type TransportFactory func() (PeerTransport, error)

// NewPeerTransport builds a pion-backed transport using the configured
// STUN/TURN servers.
func NewPeerTransport(cfg *config.Config) (PeerTransport, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, newError("create peer connection", err)
	}
	return &pionTransport{pc: pc}, nil
}

// PionFactory returns a TransportFactory bound to cfg.
func PionFactory(cfg *config.Config) TransportFactory {
	return func() (PeerTransport, error) {
		return NewPeerTransport(cfg)
	}
}

type pionTransport struct {
	pc *pion.PeerConnection
}

func (t *pionTransport) CreateOffer() (pion.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

func (t *pionTransport) CreateAnswer() (pion.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

func (t *pionTransport) SetLocalDescription(desc pion.SessionDescription) error {
	return t.pc.SetLocalDescription(desc)
}

func (t *pionTransport) SetRemoteDescription(desc pion.SessionDescription) error {
	return t.pc.SetRemoteDescription(desc)
}

func (t *pionTransport) AddICECandidate(init pion.ICECandidateInit) error {
	return t.pc.AddICECandidate(init)
}

func (t *pionTransport) AddTrack(track pion.TrackLocal) (TrackSender, error) {
	sender, err := t.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return &pionSender{sender: sender}, nil
}

func (t *pionTransport) Senders() []TrackSender {
	rtpSenders := t.pc.GetSenders()
	senders := make([]TrackSender, 0, len(rtpSenders))
	for _, s := range rtpSenders {
		senders = append(senders, &pionSender{sender: s})
	}
	return senders
}

func (t *pionTransport) OnICECandidate(fn func(*pion.ICECandidate)) {
	t.pc.OnICECandidate(fn)
}

func (t *pionTransport) OnTrack(fn func(*pion.TrackRemote)) {
	t.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		fn(track)
	})
}

func (t *pionTransport) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	t.pc.OnConnectionStateChange(fn)
}

func (t *pionTransport) ConnectionState() pion.PeerConnectionState {
	return t.pc.ConnectionState()
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}

type pionSender struct {
	sender *pion.RTPSender
}

func (s *pionSender) Track() pion.TrackLocal {
	return s.sender.Track()
}

func (s *pionSender) ReplaceTrack(track pion.TrackLocal) error {
	return s.sender.ReplaceTrack(track)
}
