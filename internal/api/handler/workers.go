package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// NewMeHandler returns an http.HandlerFunc for GET /api/v1/me.
func NewMeHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worker, ok := loadWorker(w, r, st)
		if !ok {
			return
		}
		response.JSON(w, map[string]any{
			"worker":      worker,
			"full_name":   worker.FullName(),
			"contact_key": models.ContactKey(worker.Municipality),
			"scopes":      mw.GetScopes(r),
		})
	}
}

type createWorkerRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Municipality string `json:"municipality"`
	Phone        string `json:"phone"`
}

// NewCreateWorkerHandler returns an http.HandlerFunc for POST /api/v1/admin/workers.
func NewCreateWorkerHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWorkerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		worker, err := NewHealthWorker(req.FirstName, req.LastName, req.Email, req.Municipality, req.Phone)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		if err := st.CreateHealthWorker(r.Context(), worker); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_WORKER",
					"A health worker with this email already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create health worker", nil)
			return
		}

		response.Created(w, worker)
	}
}

// NewListWorkersHandler returns an http.HandlerFunc for GET /api/v1/admin/workers.
func NewListWorkersHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workers, err := st.ListHealthWorkers(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list health workers", nil)
			return
		}
		if workers == nil {
			workers = []*models.HealthWorker{}
		}
		response.JSON(w, workers)
	}
}

// NewHealthWorker validates registration fields and builds a profile.
// Shared with the CLI.
func NewHealthWorker(first, last, email, municipality, phone string) (*models.HealthWorker, error) {
	email = strings.TrimSpace(email)
	municipality = strings.TrimSpace(municipality)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.New("email is invalid")
	}
	if municipality == "" {
		return nil, errors.New("municipality is required")
	}

	now := time.Now().UTC()
	return &models.HealthWorker{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(first),
		LastName:     strings.TrimSpace(last),
		Email:        strings.ToLower(email),
		Municipality: municipality,
		Phone:        strings.TrimSpace(phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
