// Package scanner implements the ticket scan session: camera lifecycle,
// decode gating, check-in validation and the result dialog.
package scanner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/gatecheck/internal/camera"
	"github.com/abrezinsky/gatecheck/internal/decoder"
	"github.com/abrezinsky/gatecheck/internal/errors"
	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/ticketcode"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

// Phase is the camera side of the session
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseScanning Phase = "scanning"
	PhaseStopped  Phase = "stopped"
)

// ManualFormat is the format reported for typed codes
const ManualFormat = "MANUAL"

const (
	DefaultDedupeWindow   = 1500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	recordTimeout         = 5 * time.Second
	torchOffTimeout       = 2 * time.Second
)

// Broadcaster receives every state change
type Broadcaster interface {
	BroadcastSession(snapshot models.SessionSnapshot)
}

// Recorder persists answered validations
type Recorder interface {
	RecordScan(ctx context.Context, record models.ScanRecord) error
}

// Options tunes a session
type Options struct {
	DedupeWindow   time.Duration
	RequestTimeout time.Duration
}

// Session owns one camera, its decode loop and the check-in lock.
// All methods are safe for concurrent use.
type Session struct {
	id      string
	log     logger.Logger
	device  camera.Device
	decoder decoder.Decoder
	client  checkinapi.Client

	dedupeWindow   time.Duration
	requestTimeout time.Duration

	// notifyMu orders broadcasts so observers never see an older snapshot after a newer one
	notifyMu    sync.Mutex
	broadcaster Broadcaster
	recorder    Recorder
	now         func() time.Time

	mu             sync.Mutex
	phase          Phase
	epoch          uint64
	stream         camera.Stream
	track          camera.Track
	cancelLoop     context.CancelFunc
	cancelOpen     context.CancelFunc
	torchSupported bool
	torchOn        bool
	errMsg         string
	permission     string
	lastText       string
	lastFormat     string
	locked         bool
	verifying      bool
	dedupe         dedupe
	outcome        *models.CheckInOutcome
	modal          models.Modal

	inflight sync.WaitGroup
}

// New creates an idle session
func New(log logger.Logger, device camera.Device, dec decoder.Decoder, client checkinapi.Client, opts Options) *Session {
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = DefaultDedupeWindow
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	id := uuid.New().String()
	return &Session{
		id:             id,
		log:            log.With("session", id),
		device:         device,
		decoder:        dec,
		client:         client,
		dedupeWindow:   opts.DedupeWindow,
		requestTimeout: opts.RequestTimeout,
		now:            time.Now,
		phase:          PhaseIdle,
		permission:     models.PermissionUnknown,
	}
}

// ID returns the session identifier stamped on journal entries
func (s *Session) ID() string {
	return s.id
}

// SetBroadcaster sets the observer notified on every transition
func (s *Session) SetBroadcaster(b Broadcaster) {
	s.notifyMu.Lock()
	s.broadcaster = b
	s.notifyMu.Unlock()
}

// SetRecorder sets where answered validations are journaled
func (s *Session) SetRecorder(r Recorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// SetClock overrides the time source (for testing)
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Start opens the camera and begins decoding. It is a no-op while starting or
// scanning. Failures are reported through the snapshot and returned; nothing is retried.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseStarting || s.phase == PhaseScanning {
		s.mu.Unlock()
		return nil
	}
	s.phase = PhaseStarting
	s.errMsg = ""
	epoch := s.epoch
	openCtx, cancelOpen := context.WithCancel(ctx)
	s.cancelOpen = cancelOpen
	s.mu.Unlock()
	s.notify()

	s.log.Debug("Opening camera", "device", s.device.Name())
	stream, err := s.device.Open(openCtx)
	cancelOpen()

	s.mu.Lock()
	if s.epoch != epoch {
		// Stop won the race and cancelled the open; drop whatever was acquired
		s.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
		s.log.Debug("Camera open superseded by stop")
		return nil
	}
	s.cancelOpen = nil
	if err != nil {
		s.phase = PhaseIdle
		s.errMsg = startErrorMessage(err)
		if errors.IsKind(err, errors.ErrPermission) {
			s.permission = models.PermissionDenied
		}
		s.mu.Unlock()
		s.log.Warn("Camera start failed", "device", s.device.Name(), "error", err)
		s.notify()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.stream = stream
	s.cancelLoop = cancel
	s.permission = models.PermissionGranted
	s.phase = PhaseScanning
	s.mu.Unlock()

	go s.decodeLoop(loopCtx, stream, epoch)

	s.log.Info("Scanning started", "device", s.device.Name())
	s.notify()
	return nil
}

func startErrorMessage(err error) string {
	switch errors.KindOf(err) {
	case errors.ErrPermission:
		return "Camera permission denied. Allow camera access, then press Start again."
	case errors.ErrUnavailable:
		return "No camera available. Connect a camera or use manual entry."
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return "Camera start was cancelled."
	}
	return "Could not start the camera: " + err.Error()
}

// Stop releases the camera. It is safe from any phase and never blocks on the
// decode loop. A validation still in flight is abandoned and its answer discarded;
// an open result dialog stays open.
func (s *Session) Stop() {
	s.mu.Lock()
	s.epoch++
	stream, track, torchOn, cancel := s.stream, s.track, s.torchOn, s.cancelLoop
	cancelOpen := s.cancelOpen
	wasActive := s.phase == PhaseStarting || s.phase == PhaseScanning
	s.stream = nil
	s.track = nil
	s.cancelLoop = nil
	s.cancelOpen = nil
	s.torchSupported = false
	s.torchOn = false
	if wasActive {
		s.phase = PhaseStopped
	}
	if s.locked && !s.modal.Open {
		// a validation is pending or in flight; it belongs to the old epoch
		s.verifying = false
		s.locked = false
	}
	s.mu.Unlock()

	if torchOn && track != nil {
		ctx, cancelTorch := context.WithTimeout(context.Background(), torchOffTimeout)
		if err := track.SetTorch(ctx, false); err != nil {
			s.log.Debug("Torch off failed", "error", err)
		}
		cancelTorch()
	}
	if cancelOpen != nil {
		cancelOpen()
	}
	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			s.log.Debug("Stream close failed", "error", err)
		}
	}

	if wasActive {
		s.log.Info("Scanning stopped")
	}
	s.notify()
}

// HandleVisibility stops the camera when the kiosk page is hidden.
// Becoming visible again does not restart it.
func (s *Session) HandleVisibility(hidden bool) {
	if hidden {
		s.log.Debug("Kiosk page hidden, releasing camera")
		s.Stop()
	}
}

// ToggleTorch flips the flash on cameras that report torch support
func (s *Session) ToggleTorch(ctx context.Context) error {
	s.mu.Lock()
	track, supported, on := s.track, s.torchSupported, s.torchOn
	s.mu.Unlock()

	if track == nil || !supported {
		return nil
	}
	if err := track.SetTorch(ctx, !on); err != nil {
		s.log.Warn("Torch toggle failed", "error", err)
		return err
	}

	s.mu.Lock()
	if s.track == track {
		s.torchOn = !on
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// HandleDecode is the decode callback. While locked it does nothing; otherwise
// it locks immediately and validates in the background. It reports whether the
// result was accepted.
func (s *Session) HandleDecode(result models.ScanResult) bool {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return false
	}
	code := ticketcode.Extract(result.RawText)
	if code == "" {
		s.mu.Unlock()
		return false
	}
	s.locked = true
	s.lastText = result.RawText
	s.lastFormat = result.Format
	epoch := s.epoch
	s.inflight.Add(1)
	s.mu.Unlock()
	s.notify()

	go func() {
		defer s.inflight.Done()
		s.process(context.Background(), epoch, code, result, models.SourceCamera)
	}()
	return true
}

// Validate is the manual entry path. It follows the camera rules and blocks
// until the answer is in. It returns nil when the text was ignored (locked,
// empty, duplicate or superseded by Stop).
func (s *Session) Validate(ctx context.Context, text string) *models.CheckInOutcome {
	text = strings.TrimSpace(text)
	code := ticketcode.Extract(text)
	if code == "" {
		return nil
	}

	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return nil
	}
	s.locked = true
	s.lastText = text
	s.lastFormat = ManualFormat
	epoch := s.epoch
	s.inflight.Add(1)
	s.mu.Unlock()
	s.notify()

	defer s.inflight.Done()
	return s.process(ctx, epoch, code, models.ScanResult{RawText: text, Format: ManualFormat}, models.SourceManual)
}

// process runs with the lock held by the caller's cycle
func (s *Session) process(ctx context.Context, epoch uint64, code string, result models.ScanResult, source string) *models.CheckInOutcome {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	// Every remembered answer also opens a modal and ModalOK clears the memory,
	// so this only guards cycles that reach process without an acknowledgement
	// in between.
	if s.dedupe.recent(code, s.now(), s.dedupeWindow) {
		s.locked = false
		s.mu.Unlock()
		s.log.Debug("Duplicate scan skipped", "code", code)
		s.notify()
		return nil
	}
	s.verifying = true
	s.mu.Unlock()
	s.notify()

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	resp, err := s.client.CheckIn(reqCtx, code)
	cancel()
	outcome := MapResponse(code, resp, err)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.log.Info("Discarding check-in answer after stop", "code", code, "kind", outcome.Kind)
		return nil
	}
	s.verifying = false
	s.outcome = &outcome
	s.modal = ModalFor(outcome)
	if outcome.Kind != models.OutcomeError && outcome.Kind != models.OutcomeRateLimited {
		s.dedupe.remember(code, s.now())
	}
	recorder := s.recorder
	createdAt := s.now()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("Check-in request failed", "code", code, "error", err)
	} else {
		s.log.Info("Check-in answered", "code", code, "kind", outcome.Kind, "status", resp.StatusCode, "source", source)
	}

	s.notify()
	if recorder != nil {
		// the caller holds an inflight slot, so Add cannot race Wait
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.record(recorder, outcome, result, source, createdAt)
		}()
	}
	return &outcome
}

func (s *Session) record(r Recorder, o models.CheckInOutcome, result models.ScanResult, source string, at time.Time) {
	rec := models.ScanRecord{
		SessionID: s.id,
		Code:      o.Code,
		RawText:   result.RawText,
		Format:    result.Format,
		Source:    source,
		Kind:      o.Kind,
		Message:   o.Message,
		CreatedAt: at,
	}
	if o.Data != nil {
		if t := o.Data.Ticket; t != nil {
			rec.Attendee = t.FullName
			rec.CheckedInAt = t.CheckedInAt
		}
		if e := o.Data.Event; e != nil {
			rec.EventTitle = e.Title
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.RecordScan(ctx, rec); err != nil {
		s.log.Error("Failed to record scan", "code", o.Code, "error", err)
	}
}

// ModalOK acknowledges the result dialog and releases the lock. It does nothing
// while a validation is still in flight.
func (s *Session) ModalOK() {
	s.mu.Lock()
	if s.verifying {
		s.mu.Unlock()
		return
	}
	s.modal = models.Modal{}
	s.outcome = nil
	s.lastText = ""
	s.lastFormat = ""
	s.dedupe.reset()
	s.locked = false
	s.mu.Unlock()
	s.notify()
}

// ClearResult clears the last decoded text and outcome without touching the lock
func (s *Session) ClearResult() {
	s.mu.Lock()
	s.lastText = ""
	s.lastFormat = ""
	s.outcome = nil
	s.mu.Unlock()
	s.notify()
}

// Wait blocks until every validation started so far has finished and been journaled
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Snapshot returns the current rendering state
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.SessionSnapshot{
		SessionID:      s.id,
		Phase:          string(s.phase),
		Scanning:       s.phase == PhaseScanning,
		Loading:        s.phase == PhaseStarting,
		Error:          s.errMsg,
		Permission:     s.permission,
		TorchSupported: s.torchSupported,
		TorchOn:        s.torchOn,
		LastText:       s.lastText,
		LastFormat:     s.lastFormat,
		Verifying:      s.verifying,
		Paused:         s.locked,
		Modal:          s.modal,
	}
	if s.outcome != nil {
		o := *s.outcome
		snap.CheckStatus = &o
	}
	return snap
}

func (s *Session) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastSession(s.Snapshot())
}
