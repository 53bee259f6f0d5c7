package rtc

import (
	"errors"
	"log/slog"

	pion "github.com/pion/webrtc/v4"
)

// ErrAlreadySharing is returned when a screen share is started twice.
var ErrAlreadySharing = errors.New("screen share already active")

// TrackController swaps the outbound video track on every established
// PeerLink without renegotiation: replacing a track with another of the same
// kind keeps the negotiated media description compatible.
//
// The swap itself runs on the engine's event loop, so it never races link
// creation or teardown.
type TrackController struct {
	engine *Engine
	camera CameraSource

	// sharing and replaced are touched on the engine loop only.
	sharing  bool
	replaced []TrackSender
}

func NewTrackController(engine *Engine, camera CameraSource) *TrackController {
	return &TrackController{engine: engine, camera: camera}
}

// StartScreenShare acquires a screen-capture track and swaps it onto the
// video sender of every established PeerLink. When the capture ends on its
// own (the user stops sharing), the camera track is restored automatically.
func (c *TrackController) StartScreenShare(src ScreenSource) error {
	track, ended, err := src.Acquire()
	if err != nil {
		return newError("acquire screen", errors.Join(ErrMediaAcquisition, err))
	}

	err = c.engine.call(func() error {
		if c.sharing {
			return ErrAlreadySharing
		}
		c.replaced = c.swapVideo(track)
		c.sharing = true
		slog.Info("screen share started", "senders", len(c.replaced))
		return nil
	})
	if err != nil {
		return err
	}

	go func() {
		<-ended
		if err := c.StopScreenShare(); err != nil && !errors.Is(err, ErrNotSharing) {
			slog.Error("screen share restore failed", "error", err)
		}
	}()
	return nil
}

// StopScreenShare re-acquires the camera track and swaps it back onto every
// sender that was carrying the screen capture. If the camera cannot be
// re-acquired the senders are detached rather than left on an ended track.
func (c *TrackController) StopScreenShare() error {
	track, acquireErr := c.camera.Acquire()

	err := c.engine.call(func() error {
		if !c.sharing {
			return ErrNotSharing
		}
		c.sharing = false

		for _, sender := range c.replaced {
			if err := sender.ReplaceTrack(track); err != nil {
				// The link may have closed mid-share; nothing to restore.
				slog.Debug("restore track failed", "error", err)
			}
		}
		c.replaced = nil
		return nil
	})
	if err != nil {
		return err
	}

	if acquireErr != nil {
		// Senders were detached (track is nil) above.
		return newError("acquire camera", errors.Join(ErrMediaAcquisition, acquireErr))
	}
	slog.Info("screen share stopped")
	return nil
}

// Sharing reports whether a screen capture is currently outbound.
func (c *TrackController) Sharing() bool {
	sharing := false
	c.engine.call(func() error {
		sharing = c.sharing
		return nil
	})
	return sharing
}

// swapVideo replaces the video-kind sender track on every established link
// and returns the senders that were touched.
func (c *TrackController) swapVideo(track pion.TrackLocal) []TrackSender {
	var touched []TrackSender
	for _, link := range c.engine.links {
		if link.State() != StateConnected {
			continue
		}
		for _, sender := range link.senders {
			current := sender.Track()
			if current == nil || current.Kind() != pion.RTPCodecTypeVideo {
				continue
			}
			if err := sender.ReplaceTrack(track); err != nil {
				slog.Error("replace track failed", "peer", link.remote, "error", err)
				continue
			}
			touched = append(touched, sender)
		}
	}
	return touched
}
