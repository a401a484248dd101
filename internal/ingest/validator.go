package ingest

import "github.com/kiranshivaraju/healthradar/pkg/models"

// MissingMunicipality is the name reported for rows without a municipality.
const MissingMunicipality = "(missing)"

// ValidationResult partitions rows by whether they belong to the uploader.
type ValidationResult struct {
	IsValid               bool
	InvalidMunicipalities map[string]struct{}
	ValidRecords          []Row
	InvalidRecords        []Row
}

// Validate checks every row against the uploader's municipality.
// The file is valid only when no row is invalid.
func Validate(rows []Row, municipality string) ValidationResult {
	res := ValidationResult{InvalidMunicipalities: make(map[string]struct{})}
	for _, row := range rows {
		name := row.Municipality()
		if models.SameMunicipality(name, municipality) {
			res.ValidRecords = append(res.ValidRecords, row)
			continue
		}
		if name == "" {
			name = MissingMunicipality
		}
		res.InvalidMunicipalities[name] = struct{}{}
		res.InvalidRecords = append(res.InvalidRecords, row)
	}
	res.IsValid = len(res.InvalidMunicipalities) == 0
	return res
}
