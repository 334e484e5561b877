package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Static files (served from embedded filesystem)
	if h.staticServer != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
	}

	// Kiosk page
	r.Get("/", h.handleKiosk)
	r.Get("/healthz", h.handleHealth)

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Scan session
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Post("/start", h.handleStartSession)
		r.Post("/stop", h.handleStopSession)
		r.Post("/torch", h.handleToggleTorch)
		r.Post("/validate", h.handleValidate)
		r.Post("/clear", h.handleClearResult)
		r.Post("/modal-ok", h.handleModalOK)
		r.Post("/visibility", h.handleVisibility)
	})

	// Journal
	r.Get("/api/scans", h.handleListScans)
	r.Get("/api/scans/stats", h.handleScanStats)
	r.Delete("/api/scans", h.handleClearScans)

	// Ticket labels
	r.Get("/api/tickets/{code}/qr", h.handleTicketQR)

	// Settings
	r.Get("/api/settings", h.handleGetSettings)
	r.Put("/api/settings", h.handleUpdateSettings)
	r.Post("/api/settings", h.handleUpdateSettings)

	return r
}
