package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/aggregate"
	"github.com/kiranshivaraju/healthradar/internal/ai"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// SnapshotLoader defines the aggregation dependency of the read handlers.
type SnapshotLoader interface {
	Load(ctx context.Context, workerID uuid.UUID) (*aggregate.Snapshot, error)
}

// Narrator defines the AI dependency of the analysis handler.
type Narrator interface {
	Narrate(ctx context.Context, data models.AggregatedDiseaseData) (*ai.Narrative, error)
}

// BroadcastTrigger starts an asynchronous broadcast job.
type BroadcastTrigger interface {
	TriggerBroadcast(ctx context.Context, trigger string, triggeredBy *uuid.UUID, uploadCount int64) (*models.Job, error)
}

// NewAggregateHandler returns an http.HandlerFunc for GET /api/v1/cases/aggregate.
func NewAggregateHandler(loader SnapshotLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, _ := mw.GetWorkerID(r)

		snap, err := loader.Load(r.Context(), workerID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to aggregate case records", nil)
			return
		}
		response.JSON(w, snap)
	}
}

// NewAnalysisHandler returns an http.HandlerFunc for POST /api/v1/analysis.
func NewAnalysisHandler(loader SnapshotLoader, svc Narrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, _ := mw.GetWorkerID(r)

		snap, err := loader.Load(r.Context(), workerID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to aggregate case records", nil)
			return
		}

		narrative, err := svc.Narrate(r.Context(), snap.Data)
		if err != nil {
			switch {
			case errors.Is(err, ai.ErrNoCaseData):
				response.Error(w, http.StatusNotFound, "NO_CASE_DATA",
					"No case data is available to analyze", nil)
			case errors.Is(err, ai.ErrProviderUnavailable):
				response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
					"The AI provider is not available", nil)
			case errors.Is(err, ai.ErrInferenceTimeout):
				response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT",
					"AI analysis took too long and was cancelled", nil)
			case errors.Is(err, ai.ErrInvalidResponse):
				response.Error(w, http.StatusBadGateway, "AI_INVALID_RESPONSE",
					"The AI provider returned an unusable response", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, analysisResponse{
			Narrative:   narrative,
			Source:      snap.Source,
			RecordCount: snap.RecordCount,
		})
	}
}

type analysisResponse struct {
	*ai.Narrative
	Source      string `json:"source"`
	RecordCount int    `json:"record_count"`
}

// NewBroadcastHandler returns an http.HandlerFunc for POST /api/v1/analysis/broadcast.
func NewBroadcastHandler(b BroadcastTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var triggeredBy *uuid.UUID
		if id, ok := mw.GetWorkerID(r); ok {
			triggeredBy = &id
		}

		job, err := b.TriggerBroadcast(r.Context(), models.TriggerManual, triggeredBy, 0)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start broadcast", nil)
			return
		}

		response.Accepted(w, map[string]any{
			"job_id":   job.ID,
			"status":   job.Status,
			"poll_url": "/api/v1/jobs/" + job.ID.String(),
		})
	}
}

// NewLatestAnalysisHandler returns an http.HandlerFunc for GET /api/v1/analysis/latest.
func NewLatestAnalysisHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := st.GetLatestAnalysisResult(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NO_ANALYSIS", "No broadcast analysis has been stored yet", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load analysis", nil)
			return
		}
		response.JSON(w, result)
	}
}
