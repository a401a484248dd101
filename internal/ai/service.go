package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/healthradar/internal/aggregate"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const (
	forecastTemperature = 0.7
	narrativeTopP       = 0.9
	maxCompletionTokens = 2000

	maxSummaryBytes   = 2000
	maxNarrativeBytes = 8000
)

var (
	reThinkBlock    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	reThinkUnclosed = regexp.MustCompile(`(?s)<think>.*$`)
)

// ForecastOutcome is a forecast plus how it was obtained. Err holds the
// provider or parse failure that forced a fallback, if any.
type ForecastOutcome struct {
	Forecast models.Forecast
	Fallback string
	Err      error
}

// UsedFallback reports whether the forecast is canned rather than generated.
func (o ForecastOutcome) UsedFallback() bool { return o.Fallback != FallbackNone }

// Narrative is a free-text conclusion over the current aggregate.
type Narrative struct {
	Analysis    string    `json:"analysis"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service builds prompts, calls the configured provider, and cleans up the
// replies.
type Service struct {
	provider models.AIProvider
	timeout  time.Duration
	now      func() time.Time
}

func NewService(provider models.AIProvider, timeout time.Duration) *Service {
	return &Service{provider: provider, timeout: timeout, now: time.Now}
}

func (s *Service) Provider() models.AIProvider { return s.provider }

// Forecast asks the model for a next-month outlook. It always returns a
// usable forecast: an unreachable model or unparseable reply yields one of
// two canned forecasts.
func (s *Service) Forecast(ctx context.Context, records []*models.CaseRecord) ForecastOutcome {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.provider.Complete(callCtx, models.CompletionRequest{
		Prompt:      ForecastPrompt(records),
		Temperature: forecastTemperature,
		MaxTokens:   maxCompletionTokens,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
			err = fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
		}
		slog.Warn("forecast provider failed, using fallback", "error", err, "provider", s.provider.Name())
		return ForecastOutcome{Forecast: providerFallbackForecast(), Fallback: FallbackProvider, Err: err}
	}

	f, err := ParseForecast(raw)
	if err != nil {
		slog.Warn("forecast reply unparseable, using fallback", "error", err, "provider", s.provider.Name())
		return ForecastOutcome{Forecast: parseFallbackForecast(), Fallback: FallbackParse, Err: err}
	}
	f.Summary = truncateString(f.Summary, maxSummaryBytes)
	return ForecastOutcome{Forecast: f}
}

// Narrate asks the model for a narrative conclusion over the aggregate.
func (s *Service) Narrate(ctx context.Context, data models.AggregatedDiseaseData) (*Narrative, error) {
	if len(data) == 0 {
		return nil, ErrNoCaseData
	}
	prompt, err := NarrativePrompt(aggregate.Summarize(data, s.now()))
	if err != nil {
		return nil, err
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	text, err := s.provider.Complete(callCtx, models.CompletionRequest{
		System:      narrativeSystem,
		Prompt:      prompt,
		Temperature: forecastTemperature,
		TopP:        narrativeTopP,
		MaxTokens:   maxCompletionTokens,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
		}
		return nil, err
	}

	text = strings.TrimSpace(stripThinking(text))
	if text == "" {
		return nil, fmt.Errorf("%w: empty narrative", ErrInvalidResponse)
	}
	return &Narrative{
		Analysis:    truncateString(text, maxNarrativeBytes),
		Provider:    s.provider.Name(),
		Model:       s.provider.Model(),
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ParseForecast extracts the JSON object from a model reply. <think> blocks
// and text outside the outermost braces are discarded.
func ParseForecast(raw string) (models.Forecast, error) {
	clean := strings.TrimSpace(stripThinking(raw))
	first := strings.Index(clean, "{")
	last := strings.LastIndex(clean, "}")
	if first != -1 && last > first {
		clean = clean[first : last+1]
	}

	var f models.Forecast
	if err := json.Unmarshal([]byte(clean), &f); err != nil {
		return models.Forecast{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return f, nil
}

func stripThinking(s string) string {
	s = reThinkBlock.ReplaceAllString(s, "")
	return reThinkUnclosed.ReplaceAllString(s, "")
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
