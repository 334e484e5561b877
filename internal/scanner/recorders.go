package scanner

import (
	"context"

	"github.com/abrezinsky/gatecheck/internal/models"
)

// Recorders fans a record out to several recorders. Every recorder is called;
// the first error is returned.
type Recorders []Recorder

// RecordScan implements Recorder
func (rs Recorders) RecordScan(ctx context.Context, rec models.ScanRecord) error {
	var first error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordScan(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
