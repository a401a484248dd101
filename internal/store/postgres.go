package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Health Workers ---

const workerColumns = `id, first_name, last_name, email, municipality, phone, created_at, updated_at`

func (s *PostgresStore) CreateHealthWorker(ctx context.Context, w *models.HealthWorker) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO health_workers (`+workerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.FirstName, w.LastName, w.Email, w.Municipality, w.Phone, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create health worker: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetHealthWorker(ctx context.Context, id uuid.UUID) (*models.HealthWorker, error) {
	var w models.HealthWorker
	err := s.pool.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM health_workers WHERE id = $1`, id,
	).Scan(&w.ID, &w.FirstName, &w.LastName, &w.Email, &w.Municipality, &w.Phone, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get health worker: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) ListHealthWorkers(ctx context.Context) ([]*models.HealthWorker, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+workerColumns+` FROM health_workers ORDER BY municipality, last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list health workers: %w", err)
	}
	defer rows.Close()

	var workers []*models.HealthWorker
	for rows.Next() {
		var w models.HealthWorker
		if err := rows.Scan(&w.ID, &w.FirstName, &w.LastName, &w.Email, &w.Municipality, &w.Phone,
			&w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan health worker: %w", err)
		}
		workers = append(workers, &w)
	}
	return workers, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, worker_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, worker_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.WorkerID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, workerID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, worker_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE worker_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.WorkerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// --- Case Records ---

const caseColumns = `id, municipality, disease_name, case_count, date, extra, uploaded_by, uploaded_by_email,
	uploaded_by_municipality, uploaded_at, upload_batch_number, record_index, batch_number,
	municipality_batch, is_latest_batch, created_at`

func (s *PostgresStore) CreateCaseRecord(ctx context.Context, rec *models.CaseRecord) error {
	extra := rec.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO case_records (`+caseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.Municipality, rec.DiseaseName, rec.CaseCount, rec.Date, extra,
		rec.UploadedBy, rec.UploadedByEmail, rec.UploadedByMunicipality, rec.UploadedAt,
		rec.UploadBatchNumber, rec.RecordIndex, rec.BatchNumber, rec.MunicipalityBatch,
		rec.IsLatestBatch, rec.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create case record: %w", err)
	}
	return nil
}

func caseWhere(filter CaseFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.Municipality != "" {
		conditions = append(conditions, fmt.Sprintf("municipality_key = $%d", argIdx))
		args = append(args, models.NormalizeMunicipality(filter.Municipality))
		argIdx++
	}
	if filter.BatchNumber > 0 {
		conditions = append(conditions, fmt.Sprintf("batch_number = $%d", argIdx))
		args = append(args, filter.BatchNumber)
	}
	return strings.Join(conditions, " AND "), args
}

func (s *PostgresStore) ListCaseRecords(ctx context.Context, filter CaseFilter) ([]*models.CaseRecord, error) {
	where, args := caseWhere(filter)
	query := `SELECT ` + caseColumns + ` FROM case_records WHERE ` + where +
		` ORDER BY uploaded_at, record_index`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list case records: %w", err)
	}
	defer rows.Close()

	var records []*models.CaseRecord
	for rows.Next() {
		var (
			r     models.CaseRecord
			batch *int
		)
		if err := rows.Scan(&r.ID, &r.Municipality, &r.DiseaseName, &r.CaseCount, &r.Date, &r.Extra,
			&r.UploadedBy, &r.UploadedByEmail, &r.UploadedByMunicipality, &r.UploadedAt,
			&r.UploadBatchNumber, &r.RecordIndex, &batch, &r.MunicipalityBatch,
			&r.IsLatestBatch, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case record: %w", err)
		}
		if batch != nil {
			r.BatchNumber = *batch
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CountCaseRecords(ctx context.Context, filter CaseFilter) (int, error) {
	where, args := caseWhere(filter)
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM case_records WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count case records: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) DeleteCaseRecordsByMunicipality(ctx context.Context, municipality string) (int64, error) {
	key := models.NormalizeMunicipality(municipality)
	if key == "" {
		return 0, fmt.Errorf("delete case records: municipality is required")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM case_records WHERE municipality_key = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("delete case records by municipality: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteAllCaseRecords(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM case_records`)
	if err != nil {
		return 0, fmt.Errorf("delete all case records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Scratch Cases ---

func (s *PostgresStore) CreateScratchCase(ctx context.Context, workerID uuid.UUID, rec *models.CaseRecord) error {
	extra := rec.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scratch_cases (id, worker_id, municipality, disease_name, case_count, date, extra, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, workerID, rec.Municipality, rec.DiseaseName, rec.CaseCount, rec.Date, extra, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create scratch case: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListScratchCases(ctx context.Context, workerID uuid.UUID) ([]*models.CaseRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, worker_id, municipality, disease_name, case_count, date, extra, created_at
		 FROM scratch_cases WHERE worker_id = $1 ORDER BY created_at`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list scratch cases: %w", err)
	}
	defer rows.Close()

	var records []*models.CaseRecord
	for rows.Next() {
		var r models.CaseRecord
		if err := rows.Scan(&r.ID, &r.UploadedBy, &r.Municipality, &r.DiseaseName, &r.CaseCount,
			&r.Date, &r.Extra, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scratch case: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) DeleteScratchCases(ctx context.Context, workerID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scratch_cases WHERE worker_id = $1`, workerID)
	if err != nil {
		return 0, fmt.Errorf("delete scratch cases: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Analysis Results ---

const resultColumns = `id, job_id, provider, model, summary, forecast, used_fallback, messages_sent, messages_failed, created_at`

func (s *PostgresStore) CreateAnalysisResult(ctx context.Context, result *models.AnalysisResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_results (`+resultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.ID, result.JobID, result.Provider, result.Model, result.Summary, result.Forecast,
		result.UsedFallback, result.MessagesSent, result.MessagesFailed, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("create analysis result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysisResultByJobID(ctx context.Context, jobID uuid.UUID) (*models.AnalysisResult, error) {
	return s.getAnalysisResult(ctx, `SELECT `+resultColumns+` FROM analysis_results WHERE job_id = $1`, jobID)
}

func (s *PostgresStore) GetLatestAnalysisResult(ctx context.Context) (*models.AnalysisResult, error) {
	return s.getAnalysisResult(ctx,
		`SELECT `+resultColumns+` FROM analysis_results ORDER BY created_at DESC LIMIT 1`)
}

func (s *PostgresStore) getAnalysisResult(ctx context.Context, query string, args ...any) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	err := s.pool.QueryRow(ctx, query, args...).Scan(&r.ID, &r.JobID, &r.Provider, &r.Model, &r.Summary,
		&r.Forecast, &r.UsedFallback, &r.MessagesSent, &r.MessagesFailed, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result: %w", err)
	}
	return &r, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, type, status, trigger_reason, triggered_by, upload_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.Type, job.Status, job.Trigger, job.TriggeredBy, job.UploadCount, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, type, status, trigger_reason, triggered_by, upload_count, error_message,
		        started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Type, &j.Status, &j.Trigger, &j.TriggeredBy, &j.UploadCount, &j.ErrorMessage,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	errMsg := ApplyJobOptions(opts...)

	// Fetch current status
	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	if !ValidTransition(currentStatus, status) {
		return fmt.Errorf("invalid job status transition: %s -> %s", currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.JobStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if errMsg != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *errMsg)
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
