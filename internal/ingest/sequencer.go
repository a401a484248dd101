package ingest

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/healthradar/internal/store"
)

// NextBatchNumber returns max(batch_number)+1 over the municipality's
// existing records. Records without a batch count as 0.
//
// Read-then-write: two concurrent uploads for one municipality can be
// handed the same number.
func NextBatchNumber(ctx context.Context, st store.Store, municipality string) (int, error) {
	existing, err := st.ListCaseRecords(ctx, store.CaseFilter{Municipality: municipality})
	if err != nil {
		return 0, fmt.Errorf("reading existing batches: %w", err)
	}
	highest := 0
	for _, rec := range existing {
		if rec.BatchNumber > highest {
			highest = rec.BatchNumber
		}
	}
	return highest + 1, nil
}
