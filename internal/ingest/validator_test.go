package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsFor(municipality string, n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"Municipality": municipality, "DiseaseName": "Dengue", "CaseCount": "1"}
	}
	return rows
}

func TestValidate_AllMatch(t *testing.T) {
	rows := append(rowsFor("Lilo-an", 2), rowsFor("LILOAN", 1)...)
	rows = append(rows, rowsFor(" liloan ", 1)...)

	res := Validate(rows, "Lilo-an")
	assert.True(t, res.IsValid)
	assert.Len(t, res.ValidRecords, 4)
	assert.Empty(t, res.InvalidRecords)
	assert.Empty(t, res.InvalidMunicipalities)
}

func TestValidate_MixedMunicipalities(t *testing.T) {
	rows := append(rowsFor("Mandaue", 8), rowsFor("Consolacion", 2)...)

	res := Validate(rows, "Mandaue")
	assert.False(t, res.IsValid)
	assert.Len(t, res.ValidRecords, 8)
	assert.Len(t, res.InvalidRecords, 2)
	assert.Equal(t, map[string]struct{}{"Consolacion": {}}, res.InvalidMunicipalities)
}

func TestValidate_MissingMunicipality(t *testing.T) {
	rows := append(rowsFor("Mandaue", 1), Row{"DiseaseName": "Dengue", "CaseCount": "1"})

	res := Validate(rows, "Mandaue")
	assert.False(t, res.IsValid)
	assert.Contains(t, res.InvalidMunicipalities, MissingMunicipality)
}

func TestValidationError(t *testing.T) {
	res := Validate(append(rowsFor("Mandaue", 8), append(rowsFor("Consolacion", 1), rowsFor("Cebu City", 1)...)...), "Mandaue")
	verr := newValidationError("Mandaue", res)

	assert.Equal(t, []string{"Cebu City", "Consolacion"}, verr.InvalidMunicipalities)
	assert.Equal(t, 8, verr.ValidCount)
	assert.Equal(t, 2, verr.InvalidCount)
	assert.Contains(t, verr.Error(), "2 of 10 records")
	assert.Contains(t, verr.Error(), "expected only Mandaue")

	var err error = verr
	assert.True(t, errors.Is(err, ErrValidation))
	var target *ValidationError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "Mandaue", target.Expected)
}
