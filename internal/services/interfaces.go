package services

import (
	"context"

	"github.com/abrezinsky/gatecheck/internal/models"
)

// HistoryServicer defines the interface for journal operations
type HistoryServicer interface {
	RecordScan(ctx context.Context, rec models.ScanRecord) error
	RecentScans(ctx context.Context, limit int) ([]models.ScanRecord, error)
	Stats(ctx context.Context) (models.ScanStats, error)
	AttemptsForCode(ctx context.Context, code string) (int, error)
	ClearHistory(ctx context.Context) error
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	CheckInURL(ctx context.Context) (string, error)
	SetCheckInURL(ctx context.Context, url string) error
	EventLabel(ctx context.Context) (string, error)
	SetEventLabel(ctx context.Context, label string) error
	TicketBaseURL(ctx context.Context) (string, error)
	SetTicketBaseURL(ctx context.Context, url string) error
	AllSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, update SettingsUpdate) (*Settings, error)
	Apply(ctx context.Context, fallbackURL string) error
}

// TicketQRServicer defines the interface for ticket label rendering
type TicketQRServicer interface {
	Content(ctx context.Context, code string) (string, error)
	QRImage(ctx context.Context, code string, size int) ([]byte, error)
}

// Ensure services implement interfaces
var (
	_ HistoryServicer  = (*HistoryService)(nil)
	_ SettingsServicer = (*SettingsService)(nil)
	_ TicketQRServicer = (*TicketQRService)(nil)
)
