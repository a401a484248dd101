package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/store"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

var knownScopes = map[string]bool{
	models.ScopeUpload: true,
	models.ScopeRead:   true,
	models.ScopeAdmin:  true,
}

// DefaultScopes are granted when a key request names none.
var DefaultScopes = []string{models.ScopeRead, models.ScopeUpload}

type createKeyRequest struct {
	WorkerID uuid.UUID `json:"worker_id"`
	Name     string    `json:"name"`
	Scopes   []string  `json:"scopes"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key appears only in this response.
func NewCreateKeyHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.WorkerID == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "worker_id is required", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}

		if _, err := st.GetHealthWorker(r.Context(), req.WorkerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "WORKER_NOT_FOUND", "Health worker not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load health worker", nil)
			return
		}

		key, raw, err := IssueAPIKey(req.WorkerID, req.Name, req.Scopes)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		if err := st.CreateAPIKey(r.Context(), key); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store API key", nil)
			return
		}

		response.Created(w, map[string]any{
			"id":         key.ID,
			"worker_id":  key.WorkerID,
			"name":       key.Name,
			"key":        raw,
			"key_prefix": key.KeyPrefix,
			"scopes":     key.Scopes,
			"created_at": key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys?worker_id=.
func NewListKeysHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := uuid.Parse(r.URL.Query().Get("worker_id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "worker_id must be a UUID", nil)
			return
		}
		keys, err := st.ListAPIKeys(r.Context(), workerID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys", nil)
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}
		response.JSON(w, keys)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "keyID must be a UUID", nil)
			return
		}
		if err := st.RevokeAPIKey(r.Context(), keyID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key", nil)
			return
		}
		response.NoContent(w)
	}
}

// IssueAPIKey mints a key for workerID. Shared with the CLI.
func IssueAPIKey(workerID uuid.UUID, name string, scopes []string) (*models.APIKey, string, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	for _, s := range scopes {
		if !knownScopes[s] {
			return nil, "", fmt.Errorf("unknown scope %q", s)
		}
	}

	gen, err := mw.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		WorkerID:  workerID,
		Name:      name,
		KeyHash:   gen.Hash,
		KeyPrefix: gen.Prefix,
		Scopes:    append([]string(nil), scopes...),
		CreatedAt: now,
		UpdatedAt: now,
	}, gen.Raw, nil
}
