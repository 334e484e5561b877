package mock

import (
	"context"

	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.RecordScanError = errors.New("database error")
//	svc := services.NewHistoryService(log, mockRepo)
//	err := svc.RecordScan(ctx, rec)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Scan Errors =====
	RecordScanError        error
	ListScansError         error
	ScanStatsError         error
	CountScansForCodeError error
	ClearScansError        error

	// ===== Settings Errors =====
	GetSettingError   error
	SetSettingError   error
	ListSettingsError error
	PingError         error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Scan Methods =====

func (m *Repository) RecordScan(ctx context.Context, rec models.ScanRecord) (int64, error) {
	if m.RecordScanError != nil {
		return 0, m.RecordScanError
	}
	return m.FullRepository.RecordScan(ctx, rec)
}

func (m *Repository) ListScans(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if m.ListScansError != nil {
		return nil, m.ListScansError
	}
	return m.FullRepository.ListScans(ctx, limit)
}

func (m *Repository) ScanStats(ctx context.Context) (models.ScanStats, error) {
	if m.ScanStatsError != nil {
		return models.ScanStats{}, m.ScanStatsError
	}
	return m.FullRepository.ScanStats(ctx)
}

func (m *Repository) CountScansForCode(ctx context.Context, code string) (int, error) {
	if m.CountScansForCodeError != nil {
		return 0, m.CountScansForCodeError
	}
	return m.FullRepository.CountScansForCode(ctx, code)
}

func (m *Repository) ClearScans(ctx context.Context) error {
	if m.ClearScansError != nil {
		return m.ClearScansError
	}
	return m.FullRepository.ClearScans(ctx)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) ListSettings(ctx context.Context) (map[string]string, error) {
	if m.ListSettingsError != nil {
		return nil, m.ListSettingsError
	}
	return m.FullRepository.ListSettings(ctx)
}

func (m *Repository) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.FullRepository.Ping(ctx)
}

// Ensure Repository implements FullRepository
var _ repository.FullRepository = (*Repository)(nil)
