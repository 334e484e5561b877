package scanner

import (
	"context"

	"github.com/abrezinsky/gatecheck/internal/camera"
)

// decodeLoop reads frames until the loop context is cancelled or the stream ends
func (s *Session) decodeLoop(ctx context.Context, stream camera.Stream, epoch uint64) {
	frames := stream.Frames()
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				s.streamEnded(epoch)
				return
			}
			if first {
				first = false
				s.captureTrack(epoch, stream.Track())
			}
			s.handleFrame(frame)
		}
	}
}

// handleFrame decodes one frame. Frames arriving while locked are dropped
// before decoding; decode failures are expected and ignored.
func (s *Session) handleFrame(frame camera.Frame) {
	if s.isLocked() {
		return
	}
	result, err := s.decoder.Decode(frame.Image)
	if err != nil {
		return
	}
	s.HandleDecode(result)
}

func (s *Session) isLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// captureTrack keeps the active track from the first frame and probes torch support
func (s *Session) captureTrack(epoch uint64, track camera.Track) {
	if track == nil {
		return
	}
	caps := track.Capabilities()

	s.mu.Lock()
	if s.epoch != epoch || s.track != nil {
		s.mu.Unlock()
		return
	}
	s.track = track
	s.torchSupported = caps.Torch
	s.mu.Unlock()

	s.log.Debug("Video track captured", "torch", caps.Torch)
	s.notify()
}

// streamEnded handles a device that went away on its own
func (s *Session) streamEnded(epoch uint64) {
	s.mu.Lock()
	current := s.epoch == epoch
	s.mu.Unlock()
	if !current {
		return
	}

	s.log.Warn("Camera stream ended unexpectedly")
	s.Stop()

	s.mu.Lock()
	s.errMsg = "The camera stopped delivering frames. Press Start to try again."
	s.mu.Unlock()
	s.notify()
}
