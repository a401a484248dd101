package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

const JobTypeBroadcast = "broadcast"

// Broadcast triggers.
const (
	TriggerMilestone = "milestone"
	TriggerManual    = "manual"
)

// Job tracks an async analysis broadcast. POST /api/v1/analysis/broadcast returns
// a job; clients poll GET /api/v1/jobs/{job_id} until it is completed or failed.
type Job struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	Type         string     `db:"type"          json:"type"`
	Status       string     `db:"status"        json:"status"`
	Trigger      string     `db:"trigger_reason" json:"trigger"`
	TriggeredBy  *uuid.UUID `db:"triggered_by"  json:"triggered_by,omitempty"`
	UploadCount  int64      `db:"upload_count"  json:"upload_count,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
