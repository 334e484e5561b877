package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abrezinsky/gatecheck/internal/errors"
	"github.com/abrezinsky/gatecheck/internal/logger"
)

// Camera commands sent to kiosk pages
const (
	CommandStart = "camera_start"
	CommandStop  = "camera_stop"
	CommandTorch = "torch"
)

// DefaultOpenTimeout is how long Open waits for a kiosk page to answer
const DefaultOpenTimeout = 30 * time.Second

var errOpenSuperseded = errors.Unavailable("camera open superseded by a newer request")

// Commander delivers camera commands to connected kiosk pages
type Commander interface {
	SendCommand(msgType string, payload interface{})
	ClientCount() int
}

type openReply struct {
	torch bool
	err   error
}

// BrowserDevice is the camera of a connected kiosk page. The page captures
// frames with getUserMedia and pushes them over the websocket.
type BrowserDevice struct {
	mu          sync.Mutex
	cmd         Commander
	log         logger.Logger
	openTimeout time.Duration
	waiting     chan openReply
	active      *browserStream
}

// NewBrowserDevice creates a device driven through cmd
func NewBrowserDevice(cmd Commander, log logger.Logger) *BrowserDevice {
	return &BrowserDevice{
		cmd:         cmd,
		log:         log,
		openTimeout: DefaultOpenTimeout,
	}
}

// SetCommander replaces the command channel; used to break the hub/device construction cycle
func (d *BrowserDevice) SetCommander(cmd Commander) {
	d.mu.Lock()
	d.cmd = cmd
	d.mu.Unlock()
}

// SetOpenTimeout changes how long Open waits for the page
func (d *BrowserDevice) SetOpenTimeout(timeout time.Duration) {
	d.mu.Lock()
	d.openTimeout = timeout
	d.mu.Unlock()
}

// Name identifies the device
func (d *BrowserDevice) Name() string {
	return "browser"
}

// Open asks the kiosk page to start its camera and waits for the outcome
func (d *BrowserDevice) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	cmd, timeout := d.cmd, d.openTimeout
	if cmd == nil || cmd.ClientCount() == 0 {
		d.mu.Unlock()
		return nil, errors.Wrap(fmt.Errorf("no kiosk page connected"), ErrNoDevice.Kind, ErrNoDevice.Message)
	}
	if d.active != nil {
		d.closeLocked(d.active)
	}
	if d.waiting != nil {
		// one open at a time; the older caller fails now instead of at its timeout
		d.waiting <- openReply{err: errOpenSuperseded}
	}
	reply := make(chan openReply, 1)
	d.waiting = reply
	d.mu.Unlock()

	cmd.SendCommand(CommandStart, nil)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var r openReply
	select {
	case r = <-reply:
	case <-ctx.Done():
		d.abandon(reply)
		return nil, ctx.Err()
	case <-timer.C:
		d.abandon(reply)
		return nil, errors.Wrap(fmt.Errorf("kiosk page did not answer within %s", timeout), ErrNoDevice.Kind, ErrNoDevice.Message)
	}
	if r.err != nil {
		return nil, r.err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	s := &browserStream{
		device: d,
		frames: make(chan Frame, 4),
		track:  &browserTrack{device: d, caps: Capabilities{Torch: r.torch}},
	}
	d.active = s
	d.log.Debug("Browser camera opened", "torch", r.torch)
	return s, nil
}

// abandon gives up on reply. The pages are told to stop only when the camera
// they may be starting belongs to this request and nothing newer needs it.
func (d *BrowserDevice) abandon(reply chan openReply) {
	d.mu.Lock()
	current := d.waiting == reply
	if current {
		d.waiting = nil
	}
	answered := false
	if !current {
		select {
		case r := <-reply:
			answered = r.err == nil
		default:
		}
	}
	idle := d.waiting == nil && d.active == nil
	cmd := d.cmd
	d.mu.Unlock()

	if cmd != nil && (current || answered) && idle {
		cmd.SendCommand(CommandStop, nil)
	}
}

// HandleReady is called when a page reports its camera running
func (d *BrowserDevice) HandleReady(torch bool) {
	d.deliver(openReply{torch: torch})
}

// HandleError is called when a page reports a getUserMedia failure.
// name is the DOMException name.
func (d *BrowserDevice) HandleError(name, message string) {
	cause := fmt.Errorf("%s: %s", name, message)
	switch name {
	case "NotAllowedError", "PermissionDeniedError", "SecurityError":
		d.deliver(openReply{err: errors.Wrap(cause, ErrPermissionDenied.Kind, ErrPermissionDenied.Message)})
	default:
		d.deliver(openReply{err: errors.Wrap(cause, ErrNoDevice.Kind, ErrNoDevice.Message)})
	}
}

// deliver hands r to the pending open. It sends under the lock so abandon
// sees either a pending request or its answer.
func (d *BrowserDevice) deliver(r openReply) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.waiting == nil {
		d.log.Debug("Camera reply without pending open", "error", r.err)
		return
	}
	d.waiting <- r
	d.waiting = nil
}

// HandleDisconnect is called when the last kiosk page has gone. The open
// stream ends, which the session reports, and a pending open fails.
func (d *BrowserDevice) HandleDisconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.waiting != nil {
		d.waiting <- openReply{err: errors.Wrap(fmt.Errorf("kiosk page disconnected"), ErrNoDevice.Kind, ErrNoDevice.Message)}
		d.waiting = nil
	}
	if d.active != nil {
		d.log.Info("Kiosk page disconnected; ending camera stream")
		d.closeLocked(d.active)
	}
}

// PushFrame feeds an encoded frame from the page. Frames are dropped when no
// stream is open or the consumer is behind.
func (d *BrowserDevice) PushFrame(data []byte) error {
	frame, err := DecodeFrame(data)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	select {
	case d.active.frames <- frame:
	default:
	}
	return nil
}

func (d *BrowserDevice) closeLocked(s *browserStream) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.frames)
	if d.active == s {
		d.active = nil
	}
}

type browserStream struct {
	device *BrowserDevice
	frames chan Frame
	track  *browserTrack
	closed bool
}

func (s *browserStream) Frames() <-chan Frame { return s.frames }

func (s *browserStream) Track() Track { return s.track }

func (s *browserStream) Close() error {
	d := s.device
	d.mu.Lock()
	wasOpen := !s.closed
	d.closeLocked(s)
	cmd := d.cmd
	d.mu.Unlock()

	if wasOpen && cmd != nil {
		cmd.SendCommand(CommandStop, nil)
	}
	return nil
}

type browserTrack struct {
	device *BrowserDevice
	caps   Capabilities
}

func (t *browserTrack) Capabilities() Capabilities { return t.caps }

func (t *browserTrack) SetTorch(ctx context.Context, on bool) error {
	if !t.caps.Torch {
		return ErrTorchUnsupported
	}
	t.device.mu.Lock()
	cmd := t.device.cmd
	t.device.mu.Unlock()
	if cmd == nil {
		return ErrNoDevice
	}
	cmd.SendCommand(CommandTorch, map[string]bool{"on": on})
	return nil
}
