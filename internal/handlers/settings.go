package handlers

import (
	"net/http"

	"github.com/abrezinsky/gatecheck/internal/services"
)

// ==================== Settings API ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.AllSettings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	settings, err := h.Settings.UpdateSettings(r.Context(), services.SettingsUpdate{
		CheckInURL:    req.CheckInURL,
		EventLabel:    req.EventLabel,
		TicketBaseURL: req.TicketBaseURL,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, settings)
}
