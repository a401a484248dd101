package models

// DiseaseTotals is the per-disease entry of an aggregate snapshot.
type DiseaseTotals struct {
	TotalCases     int            `json:"totalCases"`
	Municipalities map[string]int `json:"municipalities"`
	Color          string         `json:"color"`
}

// AggregatedDiseaseData maps a lower-cased disease name to its totals.
type AggregatedDiseaseData map[string]DiseaseTotals

// TotalCases sums every disease's total.
func (a AggregatedDiseaseData) TotalCases() int {
	total := 0
	for _, d := range a {
		total += d.TotalCases
	}
	return total
}
