// Package broadcast runs the AI forecast and sends it by SMS to every
// configured municipality as an asynchronous job.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/ai"
	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/internal/sms"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const (
	DefaultSendInterval = 2 * time.Second
	jobStatusTTL        = 30 * time.Minute
)

// Options tunes a Broadcaster. A negative SendInterval uses the default and
// zero disables the pause. Sleep replaces the pause in tests.
type Options struct {
	SendInterval time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
}

// Report is the per-run delivery tally.
type Report struct {
	Sent    int
	Failed  int
	Skipped bool
}

// Broadcaster implements ingest.Notifier.
type Broadcaster struct {
	store    store.Store
	cache    cache.Cache
	ai       *ai.Service
	sender   sms.Sender
	contacts []config.Contact
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	wg sync.WaitGroup
}

// New creates a Broadcaster. A nil sender disables delivery; jobs still run
// the forecast and store the result.
func New(st store.Store, c cache.Cache, svc *ai.Service, sender sms.Sender, contacts []config.Contact, opts Options) *Broadcaster {
	b := &Broadcaster{
		store:    st,
		cache:    c,
		ai:       svc,
		sender:   sender,
		contacts: contacts,
		interval: opts.SendInterval,
		sleep:    opts.Sleep,
	}
	if b.interval < 0 {
		b.interval = DefaultSendInterval
	}
	if b.sleep == nil {
		b.sleep = sleep
	}
	return b
}

// NewFromConfig creates a Broadcaster from the SMS settings. The TextBee
// sender is attached only when the gateway is configured.
func NewFromConfig(st store.Store, c cache.Cache, svc *ai.Service, cfg config.SMSConfig) (*Broadcaster, error) {
	var sender sms.Sender
	if cfg.Enabled() {
		sender = sms.NewTextBeeClient(cfg.BaseURL, cfg.APIKey, cfg.DeviceID, cfg.Timeout)
	} else {
		slog.Warn("SMS gateway not configured, broadcasts will skip delivery")
	}
	contacts, err := config.LoadContacts(cfg.ContactsFile)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	slog.Info("sms contacts loaded", "count", len(contacts))
	return New(st, c, svc, sender, contacts, Options{SendInterval: cfg.SendInterval}), nil
}

// NotifyMilestone starts a broadcast for the given upload count.
func (b *Broadcaster) NotifyMilestone(ctx context.Context, uploadCount int64) error {
	job, err := b.TriggerBroadcast(ctx, models.TriggerMilestone, nil, uploadCount)
	if err != nil {
		return err
	}
	slog.Info("milestone broadcast queued", "job_id", job.ID, "upload_count", uploadCount)
	return nil
}

// TriggerBroadcast creates a pending job and runs the broadcast in a
// background goroutine. The job is returned without waiting.
func (b *Broadcaster) TriggerBroadcast(ctx context.Context, trigger string, triggeredBy *uuid.UUID, uploadCount int64) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:          uuid.New(),
		Type:        models.JobTypeBroadcast,
		Status:      models.JobStatusPending,
		Trigger:     trigger,
		TriggeredBy: triggeredBy,
		UploadCount: uploadCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := b.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	b.setCachedStatus(ctx, job.ID, models.JobStatusPending)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(job.ID)
	}()

	return job, nil
}

// Wait blocks until every started broadcast has finished.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

// run always leaves the job completed or failed, even on panic.
func (b *Broadcaster) run(jobID uuid.UUID) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in broadcast", "error", r, "job_id", jobID)
			b.fail(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	_ = b.store.UpdateJobStatus(ctx, jobID, models.JobStatusRunning)
	b.setCachedStatus(ctx, jobID, models.JobStatusRunning)

	records, err := b.store.ListCaseRecords(ctx, store.CaseFilter{})
	if err != nil {
		b.fail(ctx, jobID, fmt.Sprintf("loading case records: %v", err))
		return
	}

	outcome := b.ai.Forecast(ctx, records)
	if outcome.Err != nil {
		slog.Warn("forecast fell back", "job_id", jobID, "fallback", outcome.Fallback, "error", outcome.Err)
	}

	report := b.Send(ctx, outcome.Forecast)

	provider := b.ai.Provider()
	result := &models.AnalysisResult{
		ID:             uuid.New(),
		JobID:          jobID,
		Provider:       provider.Name(),
		Model:          provider.Model(),
		Summary:        outcome.Forecast.Summary,
		Forecast:       outcome.Forecast,
		UsedFallback:   outcome.UsedFallback(),
		MessagesSent:   report.Sent,
		MessagesFailed: report.Failed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := b.store.CreateAnalysisResult(ctx, result); err != nil {
		b.fail(ctx, jobID, fmt.Sprintf("storing result: %v", err))
		return
	}

	_ = b.store.UpdateJobStatus(ctx, jobID, models.JobStatusCompleted)
	b.setCachedStatus(ctx, jobID, models.JobStatusCompleted)

	slog.Info("broadcast completed",
		"job_id", jobID,
		"records", len(records),
		"used_fallback", result.UsedFallback,
		"sent", report.Sent,
		"failed", report.Failed,
	)
}

// Send delivers the forecast to each contact in table order, pausing after
// every message. One contact's failure does not stop the others.
func (b *Broadcaster) Send(ctx context.Context, f models.Forecast) Report {
	if b.sender == nil || len(b.contacts) == 0 {
		slog.Info("sms disabled, skipping delivery", "contacts", len(b.contacts))
		return Report{Skipped: true}
	}

	var rep Report
	for _, c := range b.contacts {
		key := c.Key()
		msg := Envelope(key, FormatMessage(f, key))
		if err := b.sender.Send(ctx, c.Phone, msg); err != nil {
			rep.Failed++
			slog.Error("sms send failed", "municipality", key, "error", err)
		} else {
			rep.Sent++
			slog.Info("sms sent", "municipality", key)
		}
		if err := b.sleep(ctx, b.interval); err != nil {
			break
		}
	}
	return rep
}

func (b *Broadcaster) fail(ctx context.Context, jobID uuid.UUID, msg string) {
	_ = b.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(msg))
	b.setCachedStatus(ctx, jobID, models.JobStatusFailed)
}

func (b *Broadcaster) setCachedStatus(ctx context.Context, jobID uuid.UUID, status string) {
	if b.cache == nil {
		return
	}
	if err := b.cache.SetJobStatus(ctx, jobID, status, jobStatusTTL); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("caching job status failed", "job_id", jobID, "status", status, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
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
