package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gatecheck/internal/handlers"
	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/repository"
	"github.com/abrezinsky/gatecheck/internal/scanner"
	"github.com/abrezinsky/gatecheck/internal/services"
	"github.com/abrezinsky/gatecheck/internal/testutil"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

var _ handlers.ScanSession = (*scanner.Session)(nil)

// fakeSession records the calls the API makes
type fakeSession struct {
	mu       sync.Mutex
	snap     models.SessionSnapshot
	startErr error
	torchErr error
	outcome  *models.CheckInOutcome
	calls    []string
	texts    []string
	hidden   []bool
}

func (s *fakeSession) call(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *fakeSession) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSession) Start(ctx context.Context) error {
	s.call("start")
	if s.startErr != nil {
		return s.startErr
	}
	s.mu.Lock()
	s.snap.Scanning = true
	s.snap.Phase = "scanning"
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Stop() {
	s.call("stop")
	s.mu.Lock()
	s.snap.Scanning = false
	s.snap.Phase = "idle"
	s.mu.Unlock()
}

func (s *fakeSession) ToggleTorch(ctx context.Context) error {
	s.call("torch")
	return s.torchErr
}

func (s *fakeSession) Validate(ctx context.Context, text string) *models.CheckInOutcome {
	s.call("validate")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.outcome
}

func (s *fakeSession) ClearResult() { s.call("clear") }
func (s *fakeSession) ModalOK()     { s.call("modal-ok") }

func (s *fakeSession) HandleVisibility(hidden bool) {
	s.call("visibility")
	s.mu.Lock()
	s.hidden = append(s.hidden, hidden)
	s.mu.Unlock()
}

func (s *fakeSession) callList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeHub struct {
	clients int
}

func (h *fakeHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (h *fakeHub) ClientCount() int { return h.clients }

type testSetup struct {
	router   chi.Router
	handlers *handlers.Handlers
	session  *fakeSession
	repo     *repository.Repository
	client   *checkinapi.MockClient
	settings *services.SettingsService
	hub      *fakeHub
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()

	repo := testutil.NewTestRepository(t)
	log := logger.Discard()
	client := checkinapi.NewMockClient(checkinapi.WithBaseURL(""))
	settings := services.NewSettingsService(log, repo, client)
	session := &fakeSession{snap: models.SessionSnapshot{SessionID: "sess-test", Phase: "idle"}}
	hub := &fakeHub{clients: 2}

	h := handlers.NewForTesting(handlers.Deps{
		Session:  session,
		History:  services.NewHistoryService(log, repo),
		Settings: settings,
		Tickets:  services.NewTicketQRService(log, settings),
		Hub:      hub,
		Health:   repo,
	})

	return &testSetup{
		router:   h.Router(),
		handlers: h,
		session:  session,
		repo:     repo,
		client:   client,
		settings: settings,
		hub:      hub,
	}
}

// do sends a request with an optional JSON body through the router
func (s *testSetup) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		var buf bytes.Buffer
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("failed to encode body: %v", err)
			}
		}
		req = httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// httptestDo sends a raw request through the router of h
func httptestDo(t *testing.T, h *handlers.Handlers, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}
