package camera

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/gatecheck/internal/errors"
	"github.com/abrezinsky/gatecheck/internal/logger"
)

// DefaultSpoolInterval is how often a spool directory is polled
const DefaultSpoolInterval = 200 * time.Millisecond

var spoolExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// SpoolDevice reads frames that an external capture tool drops into a directory
// (for example `fswebcam --loop 1 /var/spool/gatecheck/%s.jpg`).
// Each new or rewritten image file becomes one frame. There is no torch.
type SpoolDevice struct {
	dir      string
	interval time.Duration
	consume  bool
	log      logger.Logger
}

// NewSpoolDevice creates a device over dir. With consume set, files are removed after reading.
func NewSpoolDevice(dir string, interval time.Duration, consume bool, log logger.Logger) *SpoolDevice {
	if interval <= 0 {
		interval = DefaultSpoolInterval
	}
	return &SpoolDevice{dir: dir, interval: interval, consume: consume, log: log}
}

// Name identifies the device
func (d *SpoolDevice) Name() string {
	return "spool:" + d.dir
}

// Open checks the directory and starts polling it
func (d *SpoolDevice) Open(ctx context.Context) (Stream, error) {
	info, err := os.Stat(d.dir)
	switch {
	case os.IsNotExist(err):
		return nil, errors.Wrap(err, ErrNoDevice.Kind, ErrNoDevice.Message)
	case os.IsPermission(err):
		return nil, errors.Wrap(err, ErrPermissionDenied.Kind, ErrPermissionDenied.Message)
	case err != nil:
		return nil, errors.Wrap(err, ErrNoDevice.Kind, ErrNoDevice.Message)
	case !info.IsDir():
		return nil, errors.Wrap(errors.InvalidInputf("%s is not a directory", d.dir), ErrNoDevice.Kind, ErrNoDevice.Message)
	}
	if _, err := os.ReadDir(d.dir); err != nil {
		if os.IsPermission(err) {
			return nil, errors.Wrap(err, ErrPermissionDenied.Kind, ErrPermissionDenied.Message)
		}
		return nil, errors.Wrap(err, ErrNoDevice.Kind, ErrNoDevice.Message)
	}

	s := &spoolStream{
		device: d,
		frames: make(chan Frame),
		done:   make(chan struct{}),
		seen:   make(map[string]time.Time),
	}
	go s.poll()
	return s, nil
}

type spoolStream struct {
	device    *SpoolDevice
	frames    chan Frame
	done      chan struct{}
	closeOnce sync.Once
	seen      map[string]time.Time
}

func (s *spoolStream) Frames() <-chan Frame { return s.frames }

func (s *spoolStream) Track() Track { return spoolTrack{} }

func (s *spoolStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *spoolStream) poll() {
	defer close(s.frames)

	ticker := time.NewTicker(s.device.interval)
	defer ticker.Stop()

	for {
		for _, path := range s.pending() {
			data, err := os.ReadFile(path)
			if err != nil {
				s.device.log.Debug("Spool read failed", "file", path, "error", err)
				continue
			}
			if s.device.consume {
				os.Remove(path)
			}
			frame, err := DecodeFrame(data)
			if err != nil {
				s.device.log.Debug("Spool frame undecodable", "file", path, "error", err)
				continue
			}
			select {
			case s.frames <- frame:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// pending returns image files that are new or changed since the last poll, oldest name first
func (s *spoolStream) pending() []string {
	entries, err := os.ReadDir(s.device.dir)
	if err != nil {
		s.device.log.Warn("Spool directory unreadable", "dir", s.device.dir, "error", err)
		return nil
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !spoolExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if prev, ok := s.seen[e.Name()]; ok && !info.ModTime().After(prev) {
			continue
		}
		s.seen[e.Name()] = info.ModTime()
		out = append(out, filepath.Join(s.device.dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

type spoolTrack struct{}

func (spoolTrack) Capabilities() Capabilities { return Capabilities{} }

func (spoolTrack) SetTorch(ctx context.Context, on bool) error { return ErrTorchUnsupported }
