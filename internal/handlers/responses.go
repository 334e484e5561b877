package handlers

import "github.com/abrezinsky/gatecheck/internal/models"

// ValidateResponse is the response for a manual validation
type ValidateResponse struct {
	Accepted bool                   `json:"accepted"`
	Outcome  *models.CheckInOutcome `json:"outcome,omitempty"`
	Session  models.SessionSnapshot `json:"session"`
}

// ScansResponse is the response for the journal listing
type ScansResponse struct {
	Scans []models.ScanRecord `json:"scans"`
	Count int                 `json:"count"`
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Kiosks   int    `json:"kiosks"`
}
