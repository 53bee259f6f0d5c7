package rtc

import (
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/signaling"
)

// fakeSender records track replacements.
type fakeSender struct {
	mu       sync.Mutex
	track    pion.TrackLocal
	err      error
	replaced int
}

func (s *fakeSender) Track() pion.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

func (s *fakeSender) ReplaceTrack(track pion.TrackLocal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.track = track
	s.replaced++
	return nil
}

// fakeTransport drives the negotiation state machine without ICE or a
// network. Descriptions are canned, candidates and tracks are recorded, and
// the connection state is whatever the test sets.
type fakeTransport struct {
	mu sync.Mutex

	local      []pion.SessionDescription
	remote     []pion.SessionDescription
	candidates []pion.ICECandidateInit
	senders    []TrackSender
	state      pion.PeerConnectionState
	closeCount int

	offerErr     error
	answerErr    error
	setRemoteErr error
	candidateErr error
	addTrackErr  error

	onICE   func(*pion.ICECandidate)
	onTrack func(*pion.TrackRemote)
	onState func(pion.PeerConnectionState)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: pion.PeerConnectionStateNew}
}

func (t *fakeTransport) CreateOffer() (pion.SessionDescription, error) {
	if t.offerErr != nil {
		return pion.SessionDescription{}, t.offerErr
	}
	return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "fake-offer"}, nil
}

func (t *fakeTransport) CreateAnswer() (pion.SessionDescription, error) {
	if t.answerErr != nil {
		return pion.SessionDescription{}, t.answerErr
	}
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "fake-answer"}, nil
}

func (t *fakeTransport) SetLocalDescription(desc pion.SessionDescription) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = append(t.local, desc)
	return nil
}

func (t *fakeTransport) SetRemoteDescription(desc pion.SessionDescription) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.setRemoteErr != nil {
		return t.setRemoteErr
	}
	t.remote = append(t.remote, desc)
	return nil
}

func (t *fakeTransport) AddICECandidate(init pion.ICECandidateInit) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.candidateErr != nil {
		return t.candidateErr
	}
	t.candidates = append(t.candidates, init)
	return nil
}

func (t *fakeTransport) AddTrack(track pion.TrackLocal) (TrackSender, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.addTrackErr != nil {
		return nil, t.addTrackErr
	}
	sender := &fakeSender{track: track}
	t.senders = append(t.senders, sender)
	return sender, nil
}

func (t *fakeTransport) Senders() []TrackSender {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TrackSender, len(t.senders))
	copy(out, t.senders)
	return out
}

func (t *fakeTransport) OnICECandidate(fn func(*pion.ICECandidate)) {
	t.onICE = fn
}

func (t *fakeTransport) OnTrack(fn func(*pion.TrackRemote)) {
	t.onTrack = fn
}

func (t *fakeTransport) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	t.onState = fn
}

func (t *fakeTransport) ConnectionState() pion.PeerConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *fakeTransport) setConnected() {
	t.mu.Lock()
	t.state = pion.PeerConnectionStateConnected
	t.mu.Unlock()
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCount++
	return nil
}

// fakeSignal captures every message the engine sends toward the server.
type fakeSignal struct {
	mu   sync.Mutex
	sent []*signaling.Message
}

func (f *fakeSignal) Send(msg *signaling.Message) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
}

func (f *fakeSignal) messages() []*signaling.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*signaling.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeCamera hands out a fixed camera track, or fails.
type fakeCamera struct {
	track pion.TrackLocal
	err   error
}

func (c *fakeCamera) Acquire() (pion.TrackLocal, error) {
	return c.track, c.err
}

// fakeScreen hands out a screen track whose capture ends when the test
// closes ended.
type fakeScreen struct {
	track pion.TrackLocal
	ended chan struct{}
	err   error
}

func (s *fakeScreen) Acquire() (pion.TrackLocal, <-chan struct{}, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.track, s.ended, nil
}
