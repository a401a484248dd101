package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// DiseaseBreakdown is one disease's line in a Summary.
type DiseaseBreakdown struct {
	Disease                     string         `json:"disease"`
	TotalCases                  int            `json:"totalCases"`
	Municipalities              map[string]int `json:"municipalities"`
	MunicipalityCount           int            `json:"municipalityCount"`
	AverageCasesPerMunicipality float64        `json:"averageCasesPerMunicipality"`
}

type DiseaseCount struct {
	Disease string `json:"disease"`
	Cases   int    `json:"cases"`
}

type MunicipalityShare struct {
	Municipality string `json:"municipality"`
	Cases        int    `json:"cases"`
	Percentage   string `json:"percentage"`
}

// Summary is the shape handed to the narrative model.
type Summary struct {
	TotalDiseases            int                 `json:"totalDiseases"`
	DiseaseBreakdown         []DiseaseBreakdown  `json:"diseaseBreakdown"`
	TotalCases               int                 `json:"totalCases"`
	Municipalities           []string            `json:"municipalities"`
	LastUpdated              time.Time           `json:"lastUpdated"`
	TopDiseases              []DiseaseCount      `json:"topDiseases"`
	MunicipalityDistribution []MunicipalityShare `json:"municipalityDistribution"`
}

const topDiseaseLimit = 5

// Summarize derives prompt-ready statistics. Diseases are ordered by total
// cases descending, ties by name.
func Summarize(data models.AggregatedDiseaseData, now time.Time) Summary {
	names := SortedDiseases(data)

	s := Summary{
		TotalDiseases:            len(data),
		DiseaseBreakdown:         make([]DiseaseBreakdown, 0, len(names)),
		TotalCases:               data.TotalCases(),
		Municipalities:           models.Municipalities,
		LastUpdated:              now.UTC(),
		TopDiseases:              make([]DiseaseCount, 0, topDiseaseLimit),
		MunicipalityDistribution: []MunicipalityShare{},
	}

	totals := make(map[string]int)
	for _, name := range names {
		d := data[name]
		s.DiseaseBreakdown = append(s.DiseaseBreakdown, DiseaseBreakdown{
			Disease:                     name,
			TotalCases:                  d.TotalCases,
			Municipalities:              d.Municipalities,
			MunicipalityCount:           len(d.Municipalities),
			AverageCasesPerMunicipality: float64(d.TotalCases) / float64(max(len(d.Municipalities), 1)),
		})
		if len(s.TopDiseases) < topDiseaseLimit {
			s.TopDiseases = append(s.TopDiseases, DiseaseCount{Disease: name, Cases: d.TotalCases})
		}
		for m, n := range d.Municipalities {
			totals[m] += n
		}
	}

	grand := 0
	for _, n := range totals {
		grand += n
	}
	munis := make([]string, 0, len(totals))
	for m := range totals {
		munis = append(munis, m)
	}
	sort.Strings(munis)
	for _, m := range munis {
		pct := "0.0"
		if grand > 0 {
			pct = strconv.FormatFloat(float64(totals[m])*100/float64(grand), 'f', 1, 64)
		}
		s.MunicipalityDistribution = append(s.MunicipalityDistribution, MunicipalityShare{
			Municipality: m,
			Cases:        totals[m],
			Percentage:   pct,
		})
	}
	return s
}

// SortedDiseases returns disease keys by total cases descending, then name.
func SortedDiseases(data models.AggregatedDiseaseData) []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := data[names[i]], data[names[j]]
		if a.TotalCases != b.TotalCases {
			return a.TotalCases > b.TotalCases
		}
		return names[i] < names[j]
	})
	return names
}
