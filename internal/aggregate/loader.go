package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// Source names where a snapshot's records came from.
const (
	SourceShared  = "shared"
	SourceScratch = "scratch"
)

// Loader reads case records and aggregates them.
type Loader struct {
	store store.Store
}

func NewLoader(st store.Store) *Loader {
	return &Loader{store: st}
}

// Snapshot is an aggregate plus where its records were read from.
type Snapshot struct {
	Data        models.AggregatedDiseaseData `json:"data"`
	Source      string                       `json:"source"`
	RecordCount int                          `json:"record_count"`
}

// Load aggregates the shared case store. When that read fails or comes back
// empty and workerID is set, the worker's scratch collection is used instead.
func (l *Loader) Load(ctx context.Context, workerID uuid.UUID) (*Snapshot, error) {
	records, err := l.store.ListCaseRecords(ctx, store.CaseFilter{})
	if err == nil && len(records) > 0 {
		return &Snapshot{Data: Aggregate(records), Source: SourceShared, RecordCount: len(records)}, nil
	}
	if err != nil {
		slog.Warn("reading shared case records, falling back to scratch", "error", err)
	}
	if workerID == uuid.Nil {
		if err != nil {
			return nil, fmt.Errorf("reading case records: %w", err)
		}
		return &Snapshot{Data: Aggregate(nil), Source: SourceShared}, nil
	}

	scratch, serr := l.store.ListScratchCases(ctx, workerID)
	if serr != nil {
		if err != nil {
			return nil, fmt.Errorf("reading case records: %w", err)
		}
		return nil, fmt.Errorf("reading scratch cases: %w", serr)
	}
	return &Snapshot{Data: Aggregate(scratch), Source: SourceScratch, RecordCount: len(scratch)}, nil
}
