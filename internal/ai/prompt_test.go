package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/healthradar/internal/aggregate"
	"github.com/kiranshivaraju/healthradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeCases(t *testing.T) {
	got := DescribeCases([]*models.CaseRecord{
		{Municipality: "Mandaue", DiseaseName: "Dengue", CaseCount: "4"},
		{Municipality: "Consolacion", DiseaseName: "Measles", CaseCount: "1"},
		{Municipality: "Mandaue", DiseaseName: "Dengue", CaseCount: "7"},
		{Municipality: "Mandaue", DiseaseName: "Cholera", CaseCount: "x"},
		{DiseaseName: "Malaria", CaseCount: "2"},
	})

	want := "COMPREHENSIVE DISEASE DATA ANALYSIS\n\n" +
		"MANDAUE MUNICIPALITY:\n" +
		"  - Dengue: 11 total cases, 2 reports, avg: 5.5, latest: 7\n" +
		"  - Cholera: 0 total cases, 1 reports, avg: 0.0, latest: 0\n" +
		"\n" +
		"CONSOLACION MUNICIPALITY:\n" +
		"  - Measles: 1 total cases, 1 reports, avg: 1.0, latest: 1\n" +
		"\n" +
		"UNKNOWN MUNICIPALITY:\n" +
		"  - Malaria: 2 total cases, 1 reports, avg: 2.0, latest: 2\n" +
		"\n"
	assert.Equal(t, want, got)
}

func TestForecastPrompt(t *testing.T) {
	p := ForecastPrompt(nil)
	assert.True(t, strings.HasPrefix(p, "You are a public health expert analyzing disease surveillance data for three municipalities in Cebu, Philippines: Mandaue, Consolacion, and Liloan."))
	assert.Contains(t, p, "CURRENT DISEASE DATA:\nCOMPREHENSIVE DISEASE DATA ANALYSIS")
	assert.Contains(t, p, `"globalInsights"`)
	assert.True(t, strings.HasSuffix(p, "Respond with valid JSON only. No explanations or additional text."))
}

func TestNarrativePrompt(t *testing.T) {
	s := aggregate.Summarize(models.AggregatedDiseaseData{
		"dengue": {TotalCases: 3, Municipalities: map[string]int{"Mandaue": 3}, Color: "#3B82F6"},
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NarrativePrompt(s)
	require.NoError(t, err)
	assert.Contains(t, p, "DISEASE DATA:\n{\n  \"totalDiseases\": 1,")
	assert.Contains(t, p, `"lastUpdated": "2025-01-01T00:00:00Z"`)
	assert.Contains(t, p, `"percentage": "100.0"`)
}

func TestStripThinking(t *testing.T) {
	assert.Equal(t, "answer", stripThinking("<think>a\nb</think>answer"))
	assert.Equal(t, "answer ", stripThinking("answer <think>never closed"))
	assert.Equal(t, "a  b", stripThinking("a <think>x</think> b"))
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxBytes int
		want     string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"does not split rune", "héllo", 2, "h"},
		{"multibyte boundary", "日本語", 6, "日本"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateString(tt.input, tt.maxBytes))
		})
	}
}
