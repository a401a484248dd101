// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// Store is a concurrency-safe in-memory implementation of store.Store.
// The hook fields let tests inject failures or observe writes.
type Store struct {
	mu sync.Mutex

	workers  map[uuid.UUID]*models.HealthWorker
	keys     map[uuid.UUID]*models.APIKey
	cases    []*models.CaseRecord
	scratch  map[uuid.UUID][]*models.CaseRecord
	jobs     map[uuid.UUID]*models.Job
	results  []*models.AnalysisResult
	creates  int
	statuses []JobTransition

	// CreateCaseHook runs before each CreateCaseRecord; a non-nil error fails the write.
	CreateCaseHook func(rec *models.CaseRecord) error
	// ListCasesErr, when set, is returned by ListCaseRecords.
	ListCasesErr error
	// PingErr is returned by Ping.
	PingErr error
}

// JobTransition records one UpdateJobStatus call.
type JobTransition struct {
	JobID  uuid.UUID
	Status string
	ErrMsg string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		workers: make(map[uuid.UUID]*models.HealthWorker),
		keys:    make(map[uuid.UUID]*models.APIKey),
		scratch: make(map[uuid.UUID][]*models.CaseRecord),
		jobs:    make(map[uuid.UUID]*models.Job),
	}
}

func (s *Store) Ping(_ context.Context) error { return s.PingErr }

// --- Health Workers ---

func (s *Store) CreateHealthWorker(_ context.Context, w *models.HealthWorker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.workers {
		if existing.Email == w.Email {
			return store.ErrDuplicateKey
		}
	}
	cp := *w
	s.workers[w.ID] = &cp
	return nil
}

func (s *Store) GetHealthWorker(_ context.Context, id uuid.UUID) (*models.HealthWorker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *Store) ListHealthWorkers(_ context.Context) ([]*models.HealthWorker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.HealthWorker, 0, len(s.workers))
	for _, w := range s.workers {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// --- API Keys ---

func (s *Store) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
	}
	return nil
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; ok {
		return store.ErrDuplicateKey
	}
	cp := *key
	s.keys[key.ID] = &cp
	return nil
}

func (s *Store) ListAPIKeys(_ context.Context, workerID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.WorkerID == workerID && k.DeletedAt == nil {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok || k.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	k.DeletedAt = &now
	return nil
}

// --- Case Records ---

func (s *Store) CreateCaseRecord(_ context.Context, rec *models.CaseRecord) error {
	if s.CreateCaseHook != nil {
		if err := s.CreateCaseHook(rec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	cp := *rec
	s.cases = append(s.cases, &cp)
	return nil
}

func matches(rec *models.CaseRecord, f store.CaseFilter) bool {
	if f.Municipality != "" && models.NormalizeMunicipality(rec.Municipality) != models.NormalizeMunicipality(f.Municipality) {
		return false
	}
	if f.BatchNumber > 0 && rec.BatchNumber != f.BatchNumber {
		return false
	}
	return true
}

func (s *Store) ListCaseRecords(_ context.Context, f store.CaseFilter) ([]*models.CaseRecord, error) {
	if s.ListCasesErr != nil {
		return nil, s.ListCasesErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CaseRecord
	for _, r := range s.cases {
		if matches(r, f) {
			cp := *r
			out = append(out, &cp)
		}
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountCaseRecords(_ context.Context, f store.CaseFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.cases {
		if matches(r, f) {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteCaseRecordsByMunicipality(_ context.Context, municipality string) (int64, error) {
	if models.NormalizeMunicipality(municipality) == "" {
		return 0, fmt.Errorf("delete case records: municipality is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cases[:0]
	var removed int64
	for _, r := range s.cases {
		if models.SameMunicipality(r.Municipality, municipality) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.cases = kept
	return removed, nil
}

func (s *Store) DeleteAllCaseRecords(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.cases))
	s.cases = nil
	return n, nil
}

// Seed inserts records directly, bypassing hooks.
func (s *Store) Seed(recs ...*models.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		cp := *r
		s.cases = append(s.cases, &cp)
	}
}

// Creates returns how many CreateCaseRecord calls succeeded.
func (s *Store) Creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// --- Scratch Cases ---

func (s *Store) CreateScratchCase(_ context.Context, workerID uuid.UUID, rec *models.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.UploadedBy = workerID
	s.scratch[workerID] = append(s.scratch[workerID], &cp)
	return nil
}

func (s *Store) ListScratchCases(_ context.Context, workerID uuid.UUID) ([]*models.CaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.CaseRecord, 0, len(s.scratch[workerID]))
	for _, r := range s.scratch[workerID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) DeleteScratchCases(_ context.Context, workerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.scratch[workerID]))
	delete(s.scratch, workerID)
	return n, nil
}

// --- Analysis Results ---

func (s *Store) CreateAnalysisResult(_ context.Context, result *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.results = append(s.results, &cp)
	return nil
}

func (s *Store) GetAnalysisResultByJobID(_ context.Context, jobID uuid.UUID) (*models.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.JobID == jobID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetLatestAnalysisResult(_ context.Context) (*models.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil, store.ErrNotFound
	}
	cp := *s.results[len(s.results)-1]
	return &cp, nil
}

// Results returns a copy of every stored analysis result.
func (s *Store) Results() []*models.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AnalysisResult, len(s.results))
	copy(out, s.results)
	return out
}

// --- Jobs ---

func (s *Store) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	errMsg := store.ApplyJobOptions(opts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if !store.ValidTransition(j.Status, status) {
		return fmt.Errorf("invalid job status transition: %s -> %s", j.Status, status)
	}
	now := time.Now().UTC()
	j.Status = status
	j.UpdatedAt = now
	switch status {
	case models.JobStatusRunning:
		j.StartedAt = &now
	case models.JobStatusCompleted, models.JobStatusFailed:
		j.CompletedAt = &now
	}
	tr := JobTransition{JobID: id, Status: status}
	if errMsg != nil {
		j.ErrorMessage = errMsg
		tr.ErrMsg = *errMsg
	}
	s.statuses = append(s.statuses, tr)
	return nil
}

// Transitions returns every recorded job status change in order.
func (s *Store) Transitions() []JobTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobTransition, len(s.statuses))
	copy(out, s.statuses)
	return out
}

var _ store.Store = (*Store)(nil)
