package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthWorker is the profile of an uploader. Municipality is treated as
// ground truth when validating uploaded rows.
type HealthWorker struct {
	ID           uuid.UUID `db:"id"           json:"id"`
	FirstName    string    `db:"first_name"   json:"first_name"`
	LastName     string    `db:"last_name"    json:"last_name"`
	Email        string    `db:"email"        json:"email"`
	Municipality string    `db:"municipality" json:"municipality"`
	Phone        string    `db:"phone"        json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"   json:"updated_at"`
}

// FullName joins first and last name.
func (w *HealthWorker) FullName() string {
	switch {
	case w.FirstName == "":
		return w.LastName
	case w.LastName == "":
		return w.FirstName
	}
	return w.FirstName + " " + w.LastName
}
