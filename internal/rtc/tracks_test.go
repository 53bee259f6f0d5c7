package rtc

import (
	"errors"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sharingFixture struct {
	h           *engineHarness
	controller  *TrackController
	cameraTrack pion.TrackLocal
	screenTrack pion.TrackLocal
	audioSender *fakeSender
	videoSender *fakeSender
	ended       chan struct{}
}

// newSharingFixture builds an engine with one established link carrying an
// audio and a video sender, plus a second link still negotiating.
func newSharingFixture(t *testing.T) *sharingFixture {
	t.Helper()
	h := newEngineHarness(t)

	audio, camera, err := DefaultTracks()
	require.NoError(t, err)
	screen, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8}, "video", "screen")
	require.NoError(t, err)

	f := &sharingFixture{
		h:           h,
		cameraTrack: camera,
		screenTrack: screen,
		audioSender: &fakeSender{track: audio},
		videoSender: &fakeSender{track: camera},
		ended:       make(chan struct{}),
	}
	f.controller = NewTrackController(h.engine, &fakeCamera{track: camera})

	h.engine.call(func() error {
		h.engine.links["p1"] = &PeerLink{
			remote:    "p1",
			state:     StateConnected,
			transport: newFakeTransport(),
			senders:   []TrackSender{f.audioSender, f.videoSender},
		}
		return nil
	})
	return f
}

// addPendingLink adds a link that has not finished negotiating.
func (f *sharingFixture) addPendingLink(t *testing.T) *fakeSender {
	t.Helper()
	sender := &fakeSender{track: f.cameraTrack}
	f.h.engine.call(func() error {
		f.h.engine.links["p2"] = &PeerLink{
			remote:    "p2",
			state:     StateOfferSent,
			transport: newFakeTransport(),
			senders:   []TrackSender{sender},
		}
		return nil
	})
	return sender
}

func (f *sharingFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.controller.StartScreenShare(&fakeScreen{track: f.screenTrack, ended: f.ended}))
}

func TestTrackController_SwapsVideoOnEstablishedLinks(t *testing.T) {
	f := newSharingFixture(t)
	pending := f.addPendingLink(t)

	f.start(t)

	assert.True(t, f.controller.Sharing())
	assert.Same(t, f.screenTrack, f.videoSender.Track(), "video sender carries the screen capture")
	assert.Equal(t, pion.RTPCodecTypeAudio, f.audioSender.Track().Kind(), "audio sender untouched")
	assert.Same(t, f.cameraTrack, pending.Track(), "links still negotiating are left alone")
}

func TestTrackController_StartTwiceFails(t *testing.T) {
	f := newSharingFixture(t)
	f.start(t)

	err := f.controller.StartScreenShare(&fakeScreen{track: f.screenTrack, ended: make(chan struct{})})
	assert.ErrorIs(t, err, ErrAlreadySharing)
}

func TestTrackController_ScreenAcquisitionFailure(t *testing.T) {
	f := newSharingFixture(t)

	err := f.controller.StartScreenShare(&fakeScreen{err: errors.New("capture denied")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMediaAcquisition)
	assert.False(t, f.controller.Sharing())
	assert.Same(t, f.cameraTrack, f.videoSender.Track())
}

func TestTrackController_StopRestoresCamera(t *testing.T) {
	f := newSharingFixture(t)
	f.start(t)

	require.NoError(t, f.controller.StopScreenShare())

	assert.False(t, f.controller.Sharing())
	assert.Same(t, f.cameraTrack, f.videoSender.Track())

	assert.ErrorIs(t, f.controller.StopScreenShare(), ErrNotSharing)
}

func TestTrackController_CaptureEndRestoresAutomatically(t *testing.T) {
	f := newSharingFixture(t)
	f.start(t)

	// The user stops sharing from the capture surface.
	close(f.ended)

	require.Eventually(t, func() bool {
		return !f.controller.Sharing()
	}, time.Second, 10*time.Millisecond)
	assert.Same(t, f.cameraTrack, f.videoSender.Track())
}

func TestTrackController_CameraReacquireFailureDetachesSenders(t *testing.T) {
	f := newSharingFixture(t)
	f.controller.camera = &fakeCamera{err: errors.New("device gone")}
	f.start(t)

	err := f.controller.StopScreenShare()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMediaAcquisition)

	// Rather than keep sending an ended capture, the sender is detached.
	assert.False(t, f.controller.Sharing())
	assert.Nil(t, f.videoSender.Track())
}
