// Package camera abstracts the capture devices a scan session reads frames from.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // frame formats
	_ "image/png"
	"time"

	"github.com/abrezinsky/gatecheck/internal/errors"
)

// Device errors. Compare with errors.Is.
var (
	ErrPermissionDenied = errors.Permission("camera permission denied")
	ErrNoDevice         = errors.Unavailable("no camera available")
	ErrTorchUnsupported = errors.InvalidInput("torch not supported by this camera")
)

// Frame is one captured image
type Frame struct {
	Image image.Image
	At    time.Time
}

// Capabilities describes optional features of an active video track
type Capabilities struct {
	Torch bool `json:"torch"`
}

// Track is the active video track of a stream
type Track interface {
	Capabilities() Capabilities
	SetTorch(ctx context.Context, on bool) error
}

// Stream is an open capture stream. Frames is closed when the stream ends.
type Stream interface {
	Frames() <-chan Frame
	Track() Track
	Close() error
}

// Device opens capture streams. Open blocks while permission is being asked.
type Device interface {
	Name() string
	Open(ctx context.Context) (Stream, error)
}

// DecodeFrame decodes an encoded JPEG or PNG image into a frame
func DecodeFrame(data []byte) (Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return Frame{Image: img, At: time.Now()}, nil
}
