// Package aggregate reduces raw case records into per-disease,
// per-municipality totals for charts, maps and AI prompts.
package aggregate

import (
	"strings"

	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// DefaultColor is used for diseases without an assigned chart color.
const DefaultColor = "#6B7280"

var diseaseColors = map[string]string{
	"tuberculosis":     "#8B5CF6",
	"measles":          "#EF4444",
	"malaria":          "#F59E0B",
	"leptospirosis":    "#10B981",
	"hiv/aids":         "#EC4899",
	"dengue":           "#3B82F6",
	"cholera":          "#06B6D4",
	"syndrome (amses)": "#84CC16",
	"encephalities":    "#F97316",
	"acute menigitis":  "#6366F1",
	"covid":            "#DC2626",
}

// ColorFor returns the chart color for a disease key (lower-cased, trimmed).
func ColorFor(disease string) string {
	if c, ok := diseaseColors[disease]; ok {
		return c
	}
	return DefaultColor
}

// Aggregate totals records by disease and municipality.
//
// Records with an empty disease, an empty municipality or a count that is
// not a positive integer are skipped without error. Disease keys are
// lower-cased and trimmed; municipality names are trimmed only.
// Returns an empty map (never nil) for empty input.
func Aggregate(records []*models.CaseRecord) models.AggregatedDiseaseData {
	out := make(models.AggregatedDiseaseData)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		disease := strings.ToLower(strings.TrimSpace(rec.DiseaseName))
		municipality := strings.TrimSpace(rec.Municipality)
		n, ok := rec.Cases()
		if disease == "" || municipality == "" || !ok {
			continue
		}

		entry, exists := out[disease]
		if !exists {
			entry = models.DiseaseTotals{
				Municipalities: make(map[string]int),
				Color:          ColorFor(disease),
			}
		}
		entry.TotalCases += n
		entry.Municipalities[municipality] += n
		out[disease] = entry
	}
	return out
}
