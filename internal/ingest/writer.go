package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGroupSize  = 10
	DefaultGroupPause = 500 * time.Millisecond
)

// Uploader identifies who is writing a batch.
type Uploader struct {
	ID           uuid.UUID
	Email        string
	Municipality string
}

// WriteResult is the outcome of a grouped write. A non-zero ErrorCount is
// reported, not returned as an error.
type WriteResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       []string
	Groups       int
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Writer persists rows in fixed-size groups. Rows inside a group are written
// concurrently; the next group starts only after the previous one has fully
// resolved and the pause has elapsed.
type Writer struct {
	store     store.Store
	groupSize int
	pause     time.Duration
	sleep     SleepFunc
}

// NewWriter creates a Writer. A zero groupSize or negative pause uses the
// default; a nil sleep uses Sleep.
func NewWriter(st store.Store, groupSize int, pause time.Duration, sleep SleepFunc) *Writer {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	if pause < 0 {
		pause = DefaultGroupPause
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Writer{store: st, groupSize: groupSize, pause: pause, sleep: sleep}
}

// Write stores every row under the given municipality batch.
func (w *Writer) Write(ctx context.Context, rows []Row, batch int, up Uploader) WriteResult {
	var res WriteResult
	uploadedAt := time.Now().UTC()
	label := models.MunicipalityBatchLabel(up.Municipality, batch)

	for start := 0; start < len(rows); start += w.groupSize {
		if start > 0 {
			if err := w.sleep(ctx, w.pause); err != nil {
				slog.Warn("group pause interrupted", "error", err)
			}
		}
		end := min(start+w.groupSize, len(rows))
		res.Groups++
		group := res.Groups

		errs := make([]error, end-start)
		var g errgroup.Group
		for i := start; i < end; i++ {
			rec := toRecord(rows[i])
			rec.ID = uuid.New()
			rec.UploadedBy = up.ID
			rec.UploadedByEmail = up.Email
			rec.UploadedByMunicipality = up.Municipality
			rec.UploadedAt = uploadedAt
			rec.CreatedAt = uploadedAt
			rec.UploadBatchNumber = group
			rec.RecordIndex = i
			rec.BatchNumber = batch
			rec.MunicipalityBatch = label
			rec.IsLatestBatch = true

			// Row failures are collected per index, not returned, so one bad
			// row never cancels the rest of its group.
			g.Go(func() error {
				errs[i-start] = w.store.CreateCaseRecord(ctx, rec)
				return nil
			})
		}
		_ = g.Wait()

		for j, err := range errs {
			if err != nil {
				res.ErrorCount++
				res.Errors = append(res.Errors, fmt.Sprintf("Record %d: %v", start+j+1, err))
				continue
			}
			res.SuccessCount++
		}
	}
	return res
}
