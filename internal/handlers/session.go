package handlers

import (
	"net/http"
	"strings"
)

// ==================== Scan Session API ====================

func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Session.Snapshot())
}

// handleStartSession blocks until the camera is running or has failed.
// Failures are also visible in the snapshot.
func (h *Handlers) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Start(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, h.Session.Snapshot())
}

func (h *Handlers) handleStopSession(w http.ResponseWriter, r *http.Request) {
	h.Session.Stop()
	respondOK(w, h.Session.Snapshot())
}

func (h *Handlers) handleToggleTorch(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.ToggleTorch(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, h.Session.Snapshot())
}

func (h *Handlers) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, BadRequest("text is required"))
		return
	}

	outcome := h.Session.Validate(r.Context(), req.Text)
	respondOK(w, ValidateResponse{
		Accepted: outcome != nil,
		Outcome:  outcome,
		Session:  h.Session.Snapshot(),
	})
}

func (h *Handlers) handleClearResult(w http.ResponseWriter, r *http.Request) {
	h.Session.ClearResult()
	respondOK(w, h.Session.Snapshot())
}

func (h *Handlers) handleModalOK(w http.ResponseWriter, r *http.Request) {
	h.Session.ModalOK()
	respondOK(w, h.Session.Snapshot())
}

func (h *Handlers) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.Session.HandleVisibility(req.Hidden)
	respondOK(w, h.Session.Snapshot())
}
