package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kiranshivaraju/healthradar/pkg/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one parsed data row keyed by header name.
type Row map[string]string

// Municipality returns the trimmed Municipality cell.
func (r Row) Municipality() string { return strings.TrimSpace(r[models.ColumnMunicipality]) }

// Parse turns delimited text into rows keyed by the header line.
// Blank lines are skipped. Short rows leave missing columns empty and cells
// past the header are dropped. Zero data rows is an ErrParse.
func Parse(data []byte) ([]Row, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrParse, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if blank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows found", ErrParse)
	}
	return rows, nil
}

// encoding/csv already drops fully empty lines; this catches ",,," rows.
func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// toRecord splits a row into the typed core and passthrough columns.
func toRecord(row Row) *models.CaseRecord {
	rec := &models.CaseRecord{
		Municipality: strings.TrimSpace(row[models.ColumnMunicipality]),
		DiseaseName:  strings.TrimSpace(row[models.ColumnDiseaseName]),
		CaseCount:    strings.TrimSpace(row[models.ColumnCaseCount]),
		Date:         strings.TrimSpace(row[models.ColumnDate]),
	}
	for k, v := range row {
		switch k {
		case models.ColumnMunicipality, models.ColumnDiseaseName, models.ColumnCaseCount, models.ColumnDate:
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[k] = v
	}
	return rec
}
