package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/abrezinsky/gatecheck/internal/handlers"
	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/services"
	"github.com/abrezinsky/gatecheck/internal/testutil"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

func createTestTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"kiosk.html": &fstest.MapFile{Data: []byte(`<html><head><title>{{.Title}}</title></head><body data-session="{{.SessionID}}"><h1>{{.EventLabel}}</h1></body></html>`)},
	}
}

func newPageHandlers(t *testing.T, templatesFS fstest.MapFS) (*handlers.Handlers, *services.SettingsService, error) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	log := logger.Discard()
	settings := services.NewSettingsService(log, repo, checkinapi.NewMockClient())
	staticServer := handlers.NewStaticServer(fstest.MapFS{
		"kiosk.js": &fstest.MapFile{Data: []byte(`console.log("kiosk")`)},
	})

	h, err := handlers.New(handlers.Deps{
		Session:  &fakeSession{},
		Settings: settings,
		History:  services.NewHistoryService(log, repo),
		Hub:      &fakeHub{},
		Health:   repo,
	}, templatesFS, staticServer)
	return h, settings, err
}

func TestNew_WithValidTemplates(t *testing.T) {
	h, _, err := newPageHandlers(t, createTestTemplatesFS())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if h == nil {
		t.Fatal("expected handlers to be created")
	}
}

func TestNew_WithMissingTemplate(t *testing.T) {
	_, _, err := newPageHandlers(t, fstest.MapFS{})
	if err == nil {
		t.Fatal("expected error for missing kiosk template")
	}
	if !strings.Contains(err.Error(), "kiosk") {
		t.Errorf("expected error to mention kiosk, got %v", err)
	}
}

func TestNew_WithBrokenTemplate(t *testing.T) {
	_, _, err := newPageHandlers(t, fstest.MapFS{
		"kiosk.html": &fstest.MapFile{Data: []byte(`{{if}}`)},
	})
	if err == nil {
		t.Fatal("expected error for unparsable template")
	}
}

func TestKioskPage(t *testing.T) {
	h, settings, err := newPageHandlers(t, createTestTemplatesFS())
	if err != nil {
		t.Fatalf("failed to create handlers: %v", err)
	}
	if err := settings.SetEventLabel(context.Background(), "Spring Gala"); err != nil {
		t.Fatalf("SetEventLabel failed: %v", err)
	}
	h.Session.(*fakeSession).snap.SessionID = "sess-page"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>Spring Gala - Gatecheck</title>", "<h1>Spring Gala</h1>", `data-session="sess-page"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got %s", want, body)
		}
	}
}

func TestKioskPage_DefaultTitle(t *testing.T) {
	h, _, err := newPageHandlers(t, createTestTemplatesFS())
	if err != nil {
		t.Fatalf("failed to create handlers: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "<title>Gatecheck</title>") {
		t.Errorf("expected default title, got %s", rec.Body.String())
	}
}

func TestKioskPage_WithoutTemplates(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without templates, got %d", rec.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	h, _, err := newPageHandlers(t, createTestTemplatesFS())
	if err != nil {
		t.Fatalf("failed to create handlers: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/kiosk.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kiosk") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp handlers.HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" || resp.Database != "ok" || resp.Kiosks != 2 {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	setup := newTestSetup(t)
	setup.repo.DB().Close()

	rec := setup.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp handlers.HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "degraded" || resp.Database == "" {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestWebSocketRoute(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/ws", nil)
	if rec.Code != http.StatusSwitchingProtocols {
		t.Errorf("expected the hub to handle /ws, got %d", rec.Code)
	}
}
