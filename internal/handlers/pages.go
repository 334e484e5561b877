package handlers

import (
	"net/http"
)

// ==================== Pages ====================

func (h *Handlers) handleKiosk(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		respondError(w, ErrNotFound)
		return
	}

	data := KioskPageData{Title: "Gatecheck"}
	if h.Settings != nil {
		if label, err := h.Settings.EventLabel(r.Context()); err == nil && label != "" {
			data.EventLabel = label
			data.Title = label + " - Gatecheck"
		}
	}
	if h.Session != nil {
		data.SessionID = h.Session.Snapshot().SessionID
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Kiosk.Execute(w, data); err != nil {
		respondError(w, InternalError(err))
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Kiosks: 0}
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	resp.Database = "ok"
	if h.Hub != nil {
		resp.Kiosks = h.Hub.ClientCount()
	}
	respondOK(w, resp)
}
