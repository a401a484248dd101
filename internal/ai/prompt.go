package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/healthradar/internal/aggregate"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const forecastSchema = `{
  "summary": "Brief overview of current disease situation across all municipalities",
  "predictions": [
    {
      "municipality": "Mandaue",
      "diseases": [
        {
          "name": "COVID-19",
          "currentTrend": "rising",
          "nextMonthPrediction": "increase",
          "reasoning": "Cases increasing due to seasonal factors",
          "riskLevel": "medium"
        }
      ],
      "overallRisk": "medium",
      "recommendations": ["Increase testing", "Public awareness campaigns"]
    },
    {
      "municipality": "Consolacion",
      "diseases": [
        {
          "name": "Dengue",
          "currentTrend": "stable",
          "nextMonthPrediction": "increase",
          "reasoning": "Rainy season approaching",
          "riskLevel": "high"
        }
      ],
      "overallRisk": "medium",
      "recommendations": ["Vector control", "Community education"]
    },
    {
      "municipality": "Liloan",
      "diseases": [
        {
          "name": "Hypertension",
          "currentTrend": "rising",
          "nextMonthPrediction": "stable",
          "reasoning": "Lifestyle factors remain constant",
          "riskLevel": "medium"
        }
      ],
      "overallRisk": "low",
      "recommendations": ["Health screenings", "Lifestyle programs"]
    }
  ],
  "globalInsights": {
    "mostConcerningDisease": "Dengue",
    "emergingTrends": ["Seasonal disease patterns", "Urban health challenges"],
    "seasonalFactors": ["Rainy season increases vector-borne diseases"],
    "recommendations": ["Regional coordination", "Resource sharing"]
  }
}`

// ForecastPrompt builds the next-month forecast prompt from raw case rows.
func ForecastPrompt(records []*models.CaseRecord) string {
	var b strings.Builder
	b.WriteString("You are a public health expert analyzing disease surveillance data for three municipalities in Cebu, Philippines: Mandaue, Consolacion, and Liloan.\n\n")
	b.WriteString("CURRENT DISEASE DATA:\n")
	b.WriteString(DescribeCases(records))
	b.WriteString("\nTASK: Analyze this data and provide predictions for next month. Respond ONLY with valid JSON, no other text.\n\n")
	b.WriteString(forecastSchema)
	b.WriteString("\n\nRespond with valid JSON only. No explanations or additional text.")
	return b.String()
}

// DescribeCases renders per-municipality, per-disease report statistics.
// Municipalities and diseases appear in the order first seen.
func DescribeCases(records []*models.CaseRecord) string {
	type series struct {
		disease string
		counts  []int
	}
	type group struct {
		name     string
		diseases []*series
		index    map[string]*series
	}

	var groups []*group
	byName := make(map[string]*group)
	for _, rec := range records {
		muni := rec.Municipality
		if muni == "" {
			muni = "Unknown"
		}
		disease := rec.DiseaseName
		if disease == "" {
			disease = "Unknown"
		}
		n, err := strconv.Atoi(strings.TrimSpace(rec.CaseCount))
		if err != nil {
			n = 0
		}

		g, ok := byName[muni]
		if !ok {
			g = &group{name: muni, index: make(map[string]*series)}
			byName[muni] = g
			groups = append(groups, g)
		}
		s, ok := g.index[disease]
		if !ok {
			s = &series{disease: disease}
			g.index[disease] = s
			g.diseases = append(g.diseases, s)
		}
		s.counts = append(s.counts, n)
	}

	var b strings.Builder
	b.WriteString("COMPREHENSIVE DISEASE DATA ANALYSIS\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "%s MUNICIPALITY:\n", strings.ToUpper(g.name))
		for _, s := range g.diseases {
			total := 0
			for _, c := range s.counts {
				total += c
			}
			avg := float64(total) / float64(len(s.counts))
			latest := s.counts[len(s.counts)-1]
			fmt.Fprintf(&b, "  - %s: %d total cases, %d reports, avg: %.1f, latest: %d\n",
				s.disease, total, len(s.counts), avg, latest)
		}
		b.WriteString("\n")
	}
	return b.String()
}

const narrativeSystem = "You are a public health AI analyst specializing in disease surveillance and epidemiology. Generate ONLY analysis conclusions without thinking process, formatting tags, or section headers. Provide direct, actionable insights for health officials in a cohesive narrative format."

// NarrativePrompt embeds the summary as indented JSON.
func NarrativePrompt(summary aggregate.Summary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	return fmt.Sprintf(`You are a public health AI analyst. Based on the disease surveillance data below from Mandaue, Consolacion, and Lilo-an municipalities in Cebu Province, provide ONLY a comprehensive analysis conclusion.

DISEASE DATA:
%s

Generate a professional analysis conclusion that includes:
- Overall disease burden assessment
- Key findings and risk indicators
- Strategic recommendations for health officials
- Next steps and monitoring guidance

Write the conclusion as a cohesive narrative suitable for a medical report. Do not include any thinking process, formatting tags, or section headers. Provide only the final analysis conclusion text that health officials can use for decision-making.

Focus on practical, actionable insights based on the current data patterns, seasonal considerations, and municipal distribution of cases.`, data), nil
}
