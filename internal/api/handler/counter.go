package handler

import (
	"net/http"

	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/counter"
)

// NewGetCounterHandler returns an http.HandlerFunc for GET /api/v1/uploads/counter.
func NewGetCounterHandler(uc counter.UploadCounter, every int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := uc.Count(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read upload counter", nil)
			return
		}
		response.JSON(w, counterResponse(n, every))
	}
}

// NewResetCounterHandler returns an http.HandlerFunc for DELETE /api/v1/uploads/counter.
func NewResetCounterHandler(uc counter.UploadCounter, every int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Reset(r.Context()); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset upload counter", nil)
			return
		}
		response.JSON(w, counterResponse(0, every))
	}
}

func counterResponse(n, every int64) map[string]any {
	if every <= 0 {
		every = counter.DefaultEvery
	}
	return map[string]any{
		"count":              n,
		"notify_every":       every,
		"uploads_to_next":    every - n%every,
		"last_was_milestone": counter.IsMilestone(n, every),
	}
}
