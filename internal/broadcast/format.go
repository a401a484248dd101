package broadcast

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const regionalActionLimit = 2

// findPrediction matches when either lower-cased name contains the other,
// so a contact key like LACION finds the Consolacion prediction. Unnamed
// predictions never match.
func findPrediction(f models.Forecast, municipality string) *models.MunicipalityForecast {
	want := strings.ToLower(strings.TrimSpace(municipality))
	if want == "" {
		return nil
	}
	for i := range f.Predictions {
		got := strings.ToLower(strings.TrimSpace(f.Predictions[i].Municipality))
		if got == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return &f.Predictions[i]
		}
	}
	return nil
}

// FormatMessage renders the SMS body for one municipality.
func FormatMessage(f models.Forecast, municipality string) string {
	var b strings.Builder
	b.WriteString("🏥 HEALTH RADAR AI ANALYSIS\n\n")
	fmt.Fprintf(&b, "📊 %s\n\n", f.Summary)

	if p := findPrediction(f, municipality); p != nil {
		fmt.Fprintf(&b, "📍 %s NEXT MONTH FORECAST:\n", strings.ToUpper(municipality))
		for _, d := range p.Diseases {
			fmt.Fprintf(&b, "• %s: %s\n", d.Name, strings.ToUpper(d.NextMonthPrediction))
			fmt.Fprintf(&b, "  Risk: %s\n", strings.ToUpper(d.RiskLevel))
			fmt.Fprintf(&b, "  Why: %s\n\n", d.Reasoning)
		}
		b.WriteString("🎯 ACTIONS NEEDED:\n")
		for _, rec := range p.Recommendations {
			fmt.Fprintf(&b, "• %s\n", rec)
		}
		fmt.Fprintf(&b, "\n📈 Overall Risk Level: %s\n", strings.ToUpper(p.OverallRisk))
	}

	fmt.Fprintf(&b, "\n⚠️ REGIONAL PRIORITY: %s\n", f.GlobalInsights.MostConcerningDisease)

	if recs := f.GlobalInsights.Recommendations; len(recs) > 0 {
		b.WriteString("\n🌐 REGIONAL ACTIONS:\n")
		for _, rec := range recs[:min(len(recs), regionalActionLimit)] {
			fmt.Fprintf(&b, "• %s\n", rec)
		}
	}

	b.WriteString("\nStay alert and coordinate with neighboring municipalities.")
	return b.String()
}

// Envelope prefixes the message with the contact key, as recipients expect.
func Envelope(key, message string) string {
	return key + "\n\n" + message
}
