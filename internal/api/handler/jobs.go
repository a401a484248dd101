package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// NewPollJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// In-flight statuses are served from the cache; finished jobs and cache
// misses are read from the store so the result and error message come along.
func NewPollJobHandler(st store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		if c != nil {
			status, ok, err := c.GetJobStatus(r.Context(), jobID)
			if err != nil {
				slog.Warn("reading cached job status", "job_id", jobID, "error", err)
			}
			if ok && (status == models.JobStatusPending || status == models.JobStatusRunning) {
				response.JSON(w, jobResponse{JobID: jobID, Status: status})
				return
			}
		}

		job, err := st.GetJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		resp := jobResponse{
			JobID:       job.ID,
			Status:      job.Status,
			Trigger:     job.Trigger,
			UploadCount: job.UploadCount,
			Error:       job.ErrorMessage,
		}
		if job.Status == models.JobStatusCompleted {
			result, err := st.GetAnalysisResultByJobID(r.Context(), job.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job result", nil)
				return
			}
			resp.Result = result
		}
		response.JSON(w, resp)
	}
}

type jobResponse struct {
	JobID       uuid.UUID              `json:"job_id"`
	Status      string                 `json:"status"`
	Trigger     string                 `json:"trigger,omitempty"`
	UploadCount int64                  `json:"upload_count,omitempty"`
	Error       *string                `json:"error,omitempty"`
	Result      *models.AnalysisResult `json:"result,omitempty"`
}
