package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/services"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// ScanSession is the kiosk scan session driven by the HTTP API
type ScanSession interface {
	Snapshot() models.SessionSnapshot
	Start(ctx context.Context) error
	Stop()
	ToggleTorch(ctx context.Context) error
	Validate(ctx context.Context, text string) *models.CheckInOutcome
	ClearResult()
	ModalOK()
	HandleVisibility(hidden bool)
}

// KioskHub is the websocket endpoint kiosk pages connect to
type KioskHub interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// KioskPageData holds the data passed to the kiosk template
type KioskPageData struct {
	Title      string
	EventLabel string
	SessionID  string
}

// Templates holds all parsed HTML templates
type Templates struct {
	Kiosk *template.Template
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Session      ScanSession
	History      services.HistoryServicer
	Settings     services.SettingsServicer
	Tickets      services.TicketQRServicer
	Hub          KioskHub
	Health       Pinger
	Log          HTTPLogger
	templates    *Templates
	staticServer http.Handler
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// Deps groups the services the handlers call
type Deps struct {
	Session  ScanSession
	History  services.HistoryServicer
	Settings services.SettingsServicer
	Tickets  services.TicketQRServicer
	Hub      KioskHub
	Health   Pinger
	Log      HTTPLogger
}

// New creates a new Handlers instance with all dependencies
func New(deps Deps, templatesFS fs.FS, staticServer http.Handler) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	h := NewForTesting(deps)
	h.templates = templates
	h.staticServer = staticServer
	return h, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(deps Deps) *Handlers {
	log := deps.Log
	if log == nil {
		log = NoopHTTPLogger{}
	}
	return &Handlers{
		Session:  deps.Session,
		History:  deps.History,
		Settings: deps.Settings,
		Tickets:  deps.Tickets,
		Hub:      deps.Hub,
		Health:   deps.Health,
		Log:      log,
		// templates left nil - API endpoints don't use templates
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Kiosk, err = template.ParseFS(templatesFS, "kiosk.html"); err != nil {
		return nil, fmt.Errorf("kiosk template: %w", err)
	}

	return t, nil
}
