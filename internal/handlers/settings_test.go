package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/abrezinsky/gatecheck/internal/handlers"
	"github.com/abrezinsky/gatecheck/internal/services"
)

func TestGetSettings_Defaults(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var settings services.Settings
	decodeBody(t, rec, &settings)
	if settings != (services.Settings{}) {
		t.Errorf("expected empty defaults, got %+v", settings)
	}
}

func TestUpdateSettings(t *testing.T) {
	setup := newTestSetup(t)

	body := map[string]string{
		"checkin_url": "https://tickets.example.com/api/checkin",
		"event_label": "Spring Gala",
	}
	rec := setup.do(t, http.MethodPut, "/api/settings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var settings services.Settings
	decodeBody(t, rec, &settings)
	if settings.CheckInURL != body["checkin_url"] || settings.EventLabel != "Spring Gala" {
		t.Errorf("unexpected settings: %+v", settings)
	}
	if setup.client.BaseURL() != body["checkin_url"] {
		t.Errorf("check-in client not updated, has %q", setup.client.BaseURL())
	}

	// omitted fields are unchanged
	rec = setup.do(t, http.MethodPost, "/api/settings", map[string]string{"ticket_base_url": "https://tickets.example.com/t"})
	decodeBody(t, rec, &settings)
	if settings.EventLabel != "Spring Gala" || settings.TicketBaseURL != "https://tickets.example.com/t" {
		t.Errorf("unexpected settings after partial update: %+v", settings)
	}
}

func TestUpdateSettings_ValidationError(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPut, "/api/settings", map[string]string{
		"checkin_url": "ftp://nope",
		"event_label": "never saved",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var apiErr handlers.APIError
	decodeBody(t, rec, &apiErr)
	if apiErr.Code != handlers.ErrCodeValidation {
		t.Errorf("code = %q, want %q", apiErr.Code, handlers.ErrCodeValidation)
	}

	label, _ := setup.settings.EventLabel(context.Background())
	if label != "" {
		t.Errorf("label saved despite failed validation: %q", label)
	}
}

func TestUpdateSettings_InvalidJSON(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPut, "/api/settings", "{invalid}")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "JSON") {
		t.Errorf("expected error to mention JSON, got %q", rec.Body.String())
	}
}

func TestTicketQR_UsesTicketBaseURL(t *testing.T) {
	setup := newTestSetup(t)
	ctx := context.Background()
	if err := setup.settings.SetTicketBaseURL(ctx, "https://tickets.example.com/t"); err != nil {
		t.Fatalf("SetTicketBaseURL failed: %v", err)
	}

	content, err := setup.handlers.Tickets.Content(ctx, "EVT-ABCD-0001")
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if content != "https://tickets.example.com/t?code=EVT-ABCD-0001" {
		t.Errorf("content = %q", content)
	}
}
