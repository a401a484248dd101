package models

// Forecast is the structured next-month outlook produced by the AI provider.
// JSON field names match the schema the model is prompted with.
type Forecast struct {
	Summary        string                 `json:"summary"`
	Predictions    []MunicipalityForecast `json:"predictions"`
	GlobalInsights GlobalInsights         `json:"globalInsights"`
}

type MunicipalityForecast struct {
	Municipality    string            `json:"municipality"`
	Diseases        []DiseaseForecast `json:"diseases"`
	OverallRisk     string            `json:"overallRisk"`
	Recommendations []string          `json:"recommendations"`
}

type DiseaseForecast struct {
	Name                string `json:"name"`
	CurrentTrend        string `json:"currentTrend"`        // rising | stable | declining
	NextMonthPrediction string `json:"nextMonthPrediction"` // increase | stable | decrease
	Reasoning           string `json:"reasoning"`
	RiskLevel           string `json:"riskLevel"` // low | medium | high
}

type GlobalInsights struct {
	MostConcerningDisease string   `json:"mostConcerningDisease"`
	EmergingTrends        []string `json:"emergingTrends"`
	SeasonalFactors       []string `json:"seasonalFactors"`
	Recommendations       []string `json:"recommendations"`
}
