package repository

import (
	"context"

	"github.com/abrezinsky/gatecheck/internal/models"
)

// Setting keys
const (
	SettingCheckInURL  = "checkin_url"
	SettingEventLabel  = "event_label"
	SettingTicketQRURL = "ticket_base_url"
)

// ScanRepository defines journal data operations
type ScanRepository interface {
	RecordScan(ctx context.Context, rec models.ScanRecord) (int64, error)
	ListScans(ctx context.Context, limit int) ([]models.ScanRecord, error)
	ScanStats(ctx context.Context) (models.ScanStats, error)
	CountScansForCode(ctx context.Context, code string) (int, error)
	ClearScans(ctx context.Context) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) (map[string]string, error)
	ClearTable(ctx context.Context, table string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	ScanRepository
	SettingsRepository
	Ping(ctx context.Context) error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
