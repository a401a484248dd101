package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/ingest"
)

const uploadField = "file"

// profileHints tell a caller how to fix a missing municipality on their profile.
var profileHints = []string{
	"Ask an administrator to register your health worker profile.",
	"Make sure your profile has a municipality set.",
	"Use an API key issued for your own profile.",
}

// Uploader defines the interface the upload handler depends on.
type Uploader interface {
	Upload(ctx context.Context, workerID uuid.UUID, data []byte) (*ingest.Result, error)
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
// The request context is detached before ingesting so a client disconnect
// does not abort a half-written batch.
func NewUploadHandler(svc Uploader, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, ok := mw.GetWorkerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing health worker", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
					"Uploaded file exceeds the size limit", map[string]any{"max_bytes": maxBytes})
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart/form-data body", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			response.Error(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only .csv files are accepted", nil)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Could not read uploaded file", nil)
			return
		}

		result, err := svc.Upload(context.WithoutCancel(r.Context()), workerID, data)
		if err != nil {
			writeUploadError(w, err)
			return
		}

		response.JSON(w, result)
	}
}

func writeUploadError(w http.ResponseWriter, err error) {
	var verr *ingest.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusUnprocessableEntity, "MUNICIPALITY_MISMATCH", verr.Error(),
			map[string]any{
				"expected_municipality":  verr.Expected,
				"invalid_municipalities": verr.InvalidMunicipalities,
				"valid_count":            verr.ValidCount,
				"invalid_count":          verr.InvalidCount,
			})
	case errors.Is(err, ingest.ErrParse):
		response.Error(w, http.StatusBadRequest, "PARSE_ERROR", err.Error(), nil)
	case errors.Is(err, ingest.ErrProfileNotFound):
		response.Error(w, http.StatusForbidden, "PROFILE_NOT_FOUND",
			"Your municipality could not be determined", map[string]any{"hints": profileHints})
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
