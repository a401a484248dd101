// Package ingest implements the case upload pipeline: parse, validate against
// the uploader's municipality, number the batch, write in paced groups,
// verify, and count the upload toward the milestone broadcast.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/counter"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const DefaultSettleDelay = 2 * time.Second

// Archiver keeps a copy of the raw uploaded file.
type Archiver interface {
	Archive(ctx context.Context, municipality string, batch int, uploadID uuid.UUID, data []byte) error
}

// Notifier starts the milestone broadcast. It must return promptly; the
// broadcast itself runs elsewhere.
type Notifier interface {
	NotifyMilestone(ctx context.Context, uploadCount int64) error
}

// Options tunes pacing. A zero GroupSize and negative durations use the
// defaults; a zero duration disables that wait.
type Options struct {
	GroupSize   int
	GroupPause  time.Duration
	SettleDelay time.Duration
	Sleep       SleepFunc
}

// Result is what an upload reports back to the caller.
type Result struct {
	UploadID          uuid.UUID `json:"upload_id"`
	Status            string    `json:"status"`
	SuccessCount      int       `json:"success_count"`
	ErrorCount        int       `json:"error_count"`
	Errors            []string  `json:"errors"`
	BatchNumber       int       `json:"batch_number"`
	Municipality      string    `json:"municipality"`
	MunicipalityBatch string    `json:"municipality_batch"`
	Groups            int       `json:"groups"`
	UploadCount       int64     `json:"upload_count"`
	Milestone         bool      `json:"milestone"`
}

const (
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
)

// Partial reports whether some rows failed to persist.
func (r *Result) Partial() bool { return r.ErrorCount > 0 }

// Pipeline runs uploads end to end.
type Pipeline struct {
	store    store.Store
	counter  counter.UploadCounter
	notifier Notifier
	archiver Archiver
	writer   *Writer
	settle   time.Duration
	sleep    SleepFunc
}

// NewPipeline wires a pipeline. notifier and archiver may be nil.
func NewPipeline(st store.Store, uc counter.UploadCounter, notifier Notifier, archiver Archiver, opts Options) *Pipeline {
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	return &Pipeline{
		store:    st,
		counter:  uc,
		notifier: notifier,
		archiver: archiver,
		writer:   NewWriter(st, opts.GroupSize, opts.GroupPause, opts.Sleep),
		settle:   opts.SettleDelay,
		sleep:    opts.Sleep,
	}
}

// Upload ingests one file for the given health worker.
//
// A malformed file is rejected before the store is touched. Profile and
// validation failures return before anything is written.
// Row write failures are reported in the Result, not as an error.
func (p *Pipeline) Upload(ctx context.Context, workerID uuid.UUID, data []byte) (*Result, error) {
	rows, err := Parse(data)
	if err != nil {
		return nil, err
	}

	worker, err := p.store.GetHealthWorker(ctx, workerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading uploader profile: %w", err)
	}
	if worker.Municipality == "" {
		return nil, ErrProfileNotFound
	}

	check := Validate(rows, worker.Municipality)
	if !check.IsValid {
		verr := newValidationError(worker.Municipality, check)
		slog.Warn("upload rejected",
			"worker_id", worker.ID,
			"municipality", worker.Municipality,
			"invalid_municipalities", verr.InvalidMunicipalities,
			"invalid_count", verr.InvalidCount)
		return nil, verr
	}

	batch, err := NextBatchNumber(ctx, p.store, worker.Municipality)
	if err != nil {
		return nil, err
	}

	uploadID := uuid.New()
	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, worker.Municipality, batch, uploadID, data); err != nil {
			slog.Error("archiving upload", "error", err, "upload_id", uploadID)
		}
	}

	wr := p.writer.Write(ctx, check.ValidRecords, batch, Uploader{
		ID:           worker.ID,
		Email:        worker.Email,
		Municipality: worker.Municipality,
	})

	res := &Result{
		UploadID:          uploadID,
		Status:            StatusCompleted,
		SuccessCount:      wr.SuccessCount,
		ErrorCount:        wr.ErrorCount,
		Errors:            wr.Errors,
		BatchNumber:       batch,
		Municipality:      worker.Municipality,
		MunicipalityBatch: models.MunicipalityBatchLabel(worker.Municipality, batch),
		Groups:            wr.Groups,
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Partial() {
		res.Status = StatusCompletedWithErrors
		slog.Warn("upload completed with errors",
			"error", ErrPartialWrite,
			"upload_id", uploadID,
			"success_count", res.SuccessCount,
			"error_count", res.ErrorCount)
	}

	p.verify(ctx, res)
	p.count(ctx, res)

	slog.Info("upload completed",
		"upload_id", uploadID,
		"municipality", res.Municipality,
		"batch_number", batch,
		"success_count", res.SuccessCount,
		"error_count", res.ErrorCount,
		"groups", res.Groups)
	return res, nil
}

// verify waits for the store to settle and recounts the batch. Advisory only.
func (p *Pipeline) verify(ctx context.Context, res *Result) {
	if err := p.sleep(ctx, p.settle); err != nil {
		slog.Warn("settle delay interrupted", "error", err)
	}
	n, err := p.store.CountCaseRecords(ctx, store.CaseFilter{
		Municipality: res.Municipality,
		BatchNumber:  res.BatchNumber,
	})
	if err != nil {
		slog.Warn("verifying upload", "error", err, "upload_id", res.UploadID)
		return
	}
	if n < res.SuccessCount {
		slog.Warn("verifying upload",
			"error", ErrVerificationMismatch,
			"upload_id", res.UploadID,
			"expected", res.SuccessCount,
			"found", n)
	}
}

// count records the upload and fires the broadcast on a milestone. Failures
// here never change the upload result.
func (p *Pipeline) count(ctx context.Context, res *Result) {
	if p.counter == nil {
		return
	}
	n, milestone, err := p.counter.RecordUpload(ctx, res.Municipality)
	if err != nil {
		slog.Error("recording upload", "error", err, "upload_id", res.UploadID)
		return
	}
	res.UploadCount = n
	res.Milestone = milestone
	if !milestone || p.notifier == nil {
		return
	}

	slog.Info("upload milestone reached", "upload_count", n)
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic starting milestone broadcast", "error", r)
			}
		}()
		if err := p.notifier.NotifyMilestone(context.WithoutCancel(ctx), n); err != nil {
			slog.Error("starting milestone broadcast",
				"error", fmt.Errorf("%w: %v", ErrNotification, err),
				"upload_count", n)
		}
	}()
}
