package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/healthradar/internal/ai"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing.
type MockProvider struct {
	Name_        string
	Model_       string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (string, error)

	mu       sync.Mutex
	requests []models.CompletionRequest
}

func (m *MockProvider) Name() string  { return m.Name_ }
func (m *MockProvider) Model() string { return m.Model_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

// Requests returns every request seen so far.
func (m *MockProvider) Requests() []models.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CompletionRequest(nil), m.requests...)
}

// SampleForecastJSON is a well-formed forecast reply.
const SampleForecastJSON = `{
  "summary": "Dengue is rising across all three municipalities.",
  "predictions": [
    {
      "municipality": "Mandaue",
      "diseases": [
        {"name": "Dengue", "currentTrend": "rising", "nextMonthPrediction": "increase", "reasoning": "Rainy season", "riskLevel": "high"}
      ],
      "overallRisk": "high",
      "recommendations": ["Clean-up drives", "Fogging"]
    },
    {
      "municipality": "Consolacion",
      "diseases": [
        {"name": "Measles", "currentTrend": "stable", "nextMonthPrediction": "stable", "reasoning": "Good coverage", "riskLevel": "low"}
      ],
      "overallRisk": "low",
      "recommendations": ["Keep vaccinating"]
    },
    {
      "municipality": "Liloan",
      "diseases": [
        {"name": "Tuberculosis", "currentTrend": "declining", "nextMonthPrediction": "decrease", "reasoning": "DOTS adherence", "riskLevel": "medium"}
      ],
      "overallRisk": "medium",
      "recommendations": ["Contact tracing"]
    }
  ],
  "globalInsights": {
    "mostConcerningDisease": "Dengue",
    "emergingTrends": ["Vector-borne increase"],
    "seasonalFactors": ["Rainy season"],
    "recommendations": ["Regional vector control", "Shared lab capacity", "Joint campaigns"]
  }
}`

// NewMockProvider returns a MockProvider with sensible default responses:
// forecast prompts get SampleForecastJSON, anything with a system prompt
// gets a one-line narrative.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock",
		Model_: "mock-v1",
		CompleteFunc: func(_ context.Context, req models.CompletionRequest) (string, error) {
			if req.System != "" {
				return "Mock narrative: dengue remains the leading concern.", nil
			}
			return SampleForecastJSON, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_:  "mock-failing",
		Model_: "mock-v1",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock-timeout",
		Model_: "mock-v1",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// NewStaticProvider returns a MockProvider that always replies with text.
func NewStaticProvider(text string) *MockProvider {
	return &MockProvider{
		Name_:  "mock-static",
		Model_: "mock-v1",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return text, nil
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
