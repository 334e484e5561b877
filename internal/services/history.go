package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/repository"
)

// HistoryService keeps the local journal of answered validations
type HistoryService struct {
	log  logger.Logger
	repo repository.ScanRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(log logger.Logger, repo repository.ScanRepository) *HistoryService {
	return &HistoryService{log: log, repo: repo}
}

// RecordScan stores one answered validation. It satisfies the scan session's recorder.
func (s *HistoryService) RecordScan(ctx context.Context, rec models.ScanRecord) error {
	id, err := s.repo.RecordScan(ctx, rec)
	if err != nil {
		return fmt.Errorf("record scan %s: %w", rec.Code, err)
	}
	s.log.Debug("Scan recorded", "id", id, "code", rec.Code, "kind", rec.Kind)
	return nil
}

// RecentScans returns the newest journal entries
func (s *HistoryService) RecentScans(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	return s.repo.ListScans(ctx, limit)
}

// Stats returns per-kind counts
func (s *HistoryService) Stats(ctx context.Context) (models.ScanStats, error) {
	return s.repo.ScanStats(ctx)
}

// AttemptsForCode returns how often a ticket code was validated from this kiosk
func (s *HistoryService) AttemptsForCode(ctx context.Context, code string) (int, error) {
	return s.repo.CountScansForCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// ClearHistory empties the journal
func (s *HistoryService) ClearHistory(ctx context.Context) error {
	if err := s.repo.ClearScans(ctx); err != nil {
		return err
	}
	s.log.Info("Scan history cleared")
	return nil
}
