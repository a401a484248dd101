package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisResult is the stored outcome of one broadcast job.
type AnalysisResult struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	JobID          uuid.UUID `db:"job_id"          json:"job_id"`
	Provider       string    `db:"provider"        json:"provider"`
	Model          string    `db:"model"           json:"model"`
	Summary        string    `db:"summary"         json:"summary"`
	Forecast       Forecast  `db:"forecast"        json:"forecast"`
	UsedFallback   bool      `db:"used_fallback"   json:"used_fallback"`
	MessagesSent   int       `db:"messages_sent"   json:"messages_sent"`
	MessagesFailed int       `db:"messages_failed" json:"messages_failed"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
}
