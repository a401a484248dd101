package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrParse is returned when an uploaded file is malformed or has no data rows.
	ErrParse = errors.New("parse error")
	// ErrProfileNotFound is returned when the uploader's municipality cannot be resolved.
	ErrProfileNotFound = errors.New("uploader profile not found")
	// ErrValidation wraps every *ValidationError.
	ErrValidation = errors.New("municipality validation failed")
	// ErrPartialWrite marks an upload where some rows failed to persist.
	ErrPartialWrite = errors.New("some records failed to save")
	// ErrVerificationMismatch is logged when a post-write recount is short.
	ErrVerificationMismatch = errors.New("post-write verification mismatch")
	// ErrNotification is logged when the milestone broadcast could not start.
	ErrNotification = errors.New("notification workflow failed")
)

// ValidationError carries the offending municipalities and row counts of a
// rejected file.
type ValidationError struct {
	Expected              string
	InvalidMunicipalities []string
	ValidCount            int
	InvalidCount          int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d of %d records belong to other municipalities (%s); expected only %s",
		e.InvalidCount, e.ValidCount+e.InvalidCount,
		strings.Join(e.InvalidMunicipalities, ", "), e.Expected)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(expected string, res ValidationResult) *ValidationError {
	names := make([]string, 0, len(res.InvalidMunicipalities))
	for name := range res.InvalidMunicipalities {
		names = append(names, name)
	}
	sort.Strings(names)
	return &ValidationError{
		Expected:              expected,
		InvalidMunicipalities: names,
		ValidCount:            len(res.ValidRecords),
		InvalidCount:          len(res.InvalidRecords),
	}
}
