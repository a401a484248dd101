package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// NewListCasesHandler returns an http.HandlerFunc for GET /api/v1/cases.
// Optional query parameters: municipality, batch, page, limit.
func NewListCasesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := store.CaseFilter{Municipality: q.Get("municipality")}
		if v := q.Get("batch"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "batch must be a positive integer", nil)
				return
			}
			filter.BatchNumber = n
		}

		page, err := intParam(q.Get("page"), 1)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return
		}
		limit, err := intParam(q.Get("limit"), defaultPageLimit)
		if err != nil || limit < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = min(limit, maxPageLimit)

		total, err := st.CountCaseRecords(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count case records", nil)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		records, err := st.ListCaseRecords(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list case records", nil)
			return
		}
		if records == nil {
			records = []*models.CaseRecord{}
		}

		response.Collection(w, records, response.Page(page, limit, total))
	}
}

// NewPurgeMunicipalityHandler returns an http.HandlerFunc for
// DELETE /api/v1/cases/municipality. It removes every shared record of the
// caller's municipality and the caller's scratch collection.
func NewPurgeMunicipalityHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worker, ok := loadWorker(w, r, st)
		if !ok {
			return
		}
		if worker.Municipality == "" {
			response.Error(w, http.StatusForbidden, "PROFILE_NOT_FOUND",
				"Your municipality could not be determined", map[string]any{"hints": profileHints})
			return
		}

		deleted, err := st.DeleteCaseRecordsByMunicipality(r.Context(), worker.Municipality)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete case records", nil)
			return
		}
		scratch, err := st.DeleteScratchCases(r.Context(), worker.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete scratch records", nil)
			return
		}

		response.JSON(w, map[string]any{
			"municipality":    worker.Municipality,
			"deleted":         deleted,
			"scratch_deleted": scratch,
		})
	}
}

// NewPurgeAllHandler returns an http.HandlerFunc for DELETE /api/v1/cases.
func NewPurgeAllHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := st.DeleteAllCaseRecords(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete case records", nil)
			return
		}
		response.JSON(w, map[string]any{"deleted": deleted})
	}
}

// loadWorker resolves the caller's profile, writing the error response itself
// when it cannot.
func loadWorker(w http.ResponseWriter, r *http.Request, st store.Store) (*models.HealthWorker, bool) {
	workerID, ok := mw.GetWorkerID(r)
	if !ok || workerID == uuid.Nil {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing health worker", nil)
		return nil, false
	}
	worker, err := st.GetHealthWorker(r.Context(), workerID)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusForbidden, "PROFILE_NOT_FOUND",
			"Your health worker profile was not found", map[string]any{"hints": profileHints})
		return nil, false
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load profile", nil)
		return nil, false
	}
	return worker, true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
