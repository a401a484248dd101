package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateHealthWorker(ctx context.Context, w *models.HealthWorker) error
	GetHealthWorker(ctx context.Context, id uuid.UUID) (*models.HealthWorker, error)
	ListHealthWorkers(ctx context.Context) ([]*models.HealthWorker, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, workerID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateCaseRecord(ctx context.Context, rec *models.CaseRecord) error
	ListCaseRecords(ctx context.Context, filter CaseFilter) ([]*models.CaseRecord, error)
	CountCaseRecords(ctx context.Context, filter CaseFilter) (int, error)
	DeleteCaseRecordsByMunicipality(ctx context.Context, municipality string) (int64, error)
	DeleteAllCaseRecords(ctx context.Context) (int64, error)

	CreateScratchCase(ctx context.Context, workerID uuid.UUID, rec *models.CaseRecord) error
	ListScratchCases(ctx context.Context, workerID uuid.UUID) ([]*models.CaseRecord, error)
	DeleteScratchCases(ctx context.Context, workerID uuid.UUID) (int64, error)

	CreateAnalysisResult(ctx context.Context, result *models.AnalysisResult) error
	GetAnalysisResultByJobID(ctx context.Context, jobID uuid.UUID) (*models.AnalysisResult, error)
	GetLatestAnalysisResult(ctx context.Context) (*models.AnalysisResult, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
}

// CaseFilter narrows case record reads. Municipality matches on the
// normalized name; zero values mean "any". Limit 0 returns every match.
type CaseFilter struct {
	Municipality string
	BatchNumber  int
	Limit        int
	Offset       int
}

type jobUpdateParams struct {
	ErrorMessage *string
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

// ApplyJobOptions resolves options into the error message they carry, if any.
// Exposed for alternative Store implementations.
func ApplyJobOptions(opts ...JobUpdateOption) (errMsg *string) {
	p := &jobUpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p.ErrorMessage
}

var validTransitions = map[string][]string{
	models.JobStatusPending: {models.JobStatusRunning},
	models.JobStatusRunning: {models.JobStatusCompleted, models.JobStatusFailed},
}

// ValidTransition reports whether a job may move from one status to another.
func ValidTransition(from, to string) bool {
	for _, a := range validTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}
