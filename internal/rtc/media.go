package rtc

import (
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// LocalMedia is the opaque handle produced by a capture collaborator: a set
// of outbound tracks plus an enable flag for the audio ones. The engine never
// captures devices itself, it only attaches these tracks to peer transports.
type LocalMedia interface {
	Tracks() []pion.TrackLocal
	SetAudioEnabled(enabled bool)
	AudioEnabled() bool
}

// CameraSource re-acquires a camera-class video track, used to restore the
// outbound video after a screen share ends.
type CameraSource interface {
	Acquire() (pion.TrackLocal, error)
}

// ScreenSource acquires a screen-capture track. The returned channel is
// closed when the capture ends (the user stops sharing), which triggers the
// swap back to the camera.
type ScreenSource interface {
	Acquire() (track pion.TrackLocal, ended <-chan struct{}, err error)
}

// StaticMedia is a LocalMedia over a fixed set of tracks. The audio flag is
// bookkeeping for whichever collaborator feeds samples into the tracks; the
// engine and track controller only read it.
type StaticMedia struct {
	mu           sync.Mutex
	tracks       []pion.TrackLocal
	audioEnabled bool
}

func NewStaticMedia(tracks ...pion.TrackLocal) *StaticMedia {
	return &StaticMedia{tracks: tracks, audioEnabled: true}
}

func (m *StaticMedia) Tracks() []pion.TrackLocal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pion.TrackLocal, len(m.tracks))
	copy(out, m.tracks)
	return out
}

func (m *StaticMedia) SetAudioEnabled(enabled bool) {
	m.mu.Lock()
	m.audioEnabled = enabled
	m.mu.Unlock()
}

func (m *StaticMedia) AudioEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioEnabled
}

// DefaultTracks builds the standard camera-shaped outbound track pair, one
// opus audio and one VP8 video sample track. The caller feeds media into
// them; for signaling purposes they are complete.
func DefaultTracks() (audio, video pion.TrackLocal, err error) {
	audioTrack, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus}, "audio", "camera")
	if err != nil {
		return nil, nil, newError("create audio track", err)
	}
	videoTrack, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8}, "video", "camera")
	if err != nil {
		return nil, nil, newError("create video track", err)
	}
	return audioTrack, videoTrack, nil
}
