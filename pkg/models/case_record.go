package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Canonical CSV column names for the typed core of a case row.
const (
	ColumnMunicipality = "Municipality"
	ColumnDiseaseName  = "DiseaseName"
	ColumnCaseCount    = "CaseCount"
	ColumnDate         = "Date"
)

// CaseRecord is one reported case-count entry in the shared case store.
// CaseCount is kept as the raw text from the uploaded file; use Cases to
// read it as a number. Columns outside the typed core travel in Extra.
type CaseRecord struct {
	ID                     uuid.UUID         `db:"id"                       json:"id"`
	Municipality           string            `db:"municipality"             json:"municipality"`
	DiseaseName            string            `db:"disease_name"             json:"disease_name"`
	CaseCount              string            `db:"case_count"               json:"case_count"`
	Date                   string            `db:"date"                     json:"date,omitempty"`
	Extra                  map[string]string `db:"extra"                    json:"extra,omitempty"`
	UploadedBy             uuid.UUID         `db:"uploaded_by"              json:"uploaded_by"`
	UploadedByEmail        string            `db:"uploaded_by_email"        json:"uploaded_by_email"`
	UploadedByMunicipality string            `db:"uploaded_by_municipality" json:"uploaded_by_municipality"`
	UploadedAt             time.Time         `db:"uploaded_at"              json:"uploaded_at"`
	UploadBatchNumber      int               `db:"upload_batch_number"      json:"upload_batch_number"`
	RecordIndex            int               `db:"record_index"             json:"record_index"`
	BatchNumber            int               `db:"batch_number"             json:"batch_number"`
	MunicipalityBatch      string            `db:"municipality_batch"       json:"municipality_batch"`
	IsLatestBatch          bool              `db:"is_latest_batch"          json:"is_latest_batch"`
	CreatedAt              time.Time         `db:"created_at"               json:"created_at"`
}

// Cases parses CaseCount. ok is false when the value is not a positive integer.
func (c *CaseRecord) Cases() (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.CaseCount))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// MunicipalityBatchLabel formats the "{municipality}-{batch}" label stored on every record.
func MunicipalityBatchLabel(municipality string, batch int) string {
	return municipality + "-" + strconv.Itoa(batch)
}
