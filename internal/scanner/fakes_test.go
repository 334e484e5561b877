package scanner

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/gatecheck/internal/camera"
	"github.com/abrezinsky/gatecheck/internal/decoder"
	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

// textImage is a frame whose decoded content is known up front
type textImage struct {
	image.Image
	text string
}

func frameOf(text string) camera.Frame {
	return camera.Frame{Image: textImage{Image: image.NewGray(image.Rect(0, 0, 1, 1)), text: text}, At: time.Now()}
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(img image.Image) (models.ScanResult, error) {
	if ti, ok := img.(textImage); ok && ti.text != "" {
		return models.ScanResult{RawText: ti.text, Format: "QR_CODE"}, nil
	}
	return models.ScanResult{}, decoder.ErrNotFound
}

type fakeTrack struct {
	mu    sync.Mutex
	torch bool
	calls []bool
}

func (t *fakeTrack) Capabilities() camera.Capabilities {
	return camera.Capabilities{Torch: t.torch}
}

func (t *fakeTrack) SetTorch(ctx context.Context, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, on)
	return nil
}

func (t *fakeTrack) torchCalls() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.calls...)
}

type fakeStream struct {
	frames    chan camera.Frame
	track     *fakeTrack
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func (s *fakeStream) Frames() <-chan camera.Frame { return s.frames }
func (s *fakeStream) Track() camera.Track         { return s.track }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// end simulates the device disappearing
func (s *fakeStream) end() {
	s.closeOnce.Do(func() { close(s.frames) })
}

type fakeDevice struct {
	mu      sync.Mutex
	err     error
	torch   bool
	opens   int
	gate    chan struct{} // when set, Open waits for it
	streams []*fakeStream
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) Open(ctx context.Context) (camera.Stream, error) {
	d.mu.Lock()
	d.opens++
	gate, err := d.gate, d.err
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	s := &fakeStream{frames: make(chan camera.Frame), track: &fakeTrack{torch: d.torch}}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *fakeDevice) lastStream() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.ScanRecord
}

func (r *fakeRecorder) RecordScan(ctx context.Context, rec models.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) all() []models.ScanRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ScanRecord(nil), r.records...)
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	snaps []models.SessionSnapshot
}

func (b *fakeBroadcaster) BroadcastSession(s models.SessionSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = append(b.snaps, s)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snaps)
}

func newTestSession(t *testing.T, device *fakeDevice, client checkinapi.Client) *Session {
	t.Helper()
	s := New(logger.Discard(), device, fakeDecoder{}, client, Options{RequestTimeout: time.Second})
	t.Cleanup(func() {
		s.Stop()
		s.Wait()
	})
	return s
}

func waitFor(t *testing.T, s *Session, what string, cond func(models.SessionSnapshot) bool) models.SessionSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot %+v", what, s.Snapshot())
	return models.SessionSnapshot{}
}

func modalOpen(snap models.SessionSnapshot) bool { return snap.Modal.Open }
