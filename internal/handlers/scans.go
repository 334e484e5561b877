package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gatecheck/internal/services"
)

// ==================== Journal API ====================

func (h *Handlers) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	if limit < 0 {
		respondError(w, BadRequest("Invalid limit parameter"))
		return
	}

	scans, err := h.History.RecentScans(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ScansResponse{Scans: scans, Count: len(scans)})
}

func (h *Handlers) handleScanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.History.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

func (h *Handlers) handleClearScans(w http.ResponseWriter, r *http.Request) {
	if err := h.History.ClearHistory(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// ==================== Ticket Labels ====================

func (h *Handlers) handleTicketQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	size, err := parseIntQuery(r, "size", services.DefaultQRSize)
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Tickets.QRImage(r.Context(), code, size)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
