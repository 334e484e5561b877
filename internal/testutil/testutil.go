// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// ScanRecord returns a journal entry for code with the given kind
func ScanRecord(code string, kind models.OutcomeKind) models.ScanRecord {
	return models.ScanRecord{
		SessionID: "test-session",
		Code:      code,
		RawText:   code,
		Format:    "QR_CODE",
		Source:    models.SourceCamera,
		Kind:      kind,
		Message:   string(kind) + " for " + code,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// SeedScans inserts records and fails the test on error
func SeedScans(t *testing.T, repo repository.ScanRepository, records ...models.ScanRecord) {
	t.Helper()
	for _, rec := range records {
		if _, err := repo.RecordScan(context.Background(), rec); err != nil {
			t.Fatalf("failed to seed scan %s: %v", rec.Code, err)
		}
	}
}
