package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vitalguard/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultInsightText = "Vitals monitored. Consult a doctor for detailed analysis."

// ErrNoEndpoint the provider has no URL configured
var ErrNoEndpoint = errors.New("insight endpoint not configured")

// insightRequest vitals summary sent to the model gateway
type insightRequest struct {
	Status      string  `json:"status"`
	HeartRate   float64 `json:"heart_rate"`
	Systolic    float64 `json:"systolic"`
	Diastolic   float64 `json:"diastolic"`
	Temperature float64 `json:"temperature"`
	Prompt      string  `json:"prompt"`
}

// insightResponse gateway reply
type insightResponse struct {
	Text string `json:"text"`
}

// HTTPProvider posts vitals to an insight gateway
type HTTPProvider struct {
	httpClient *resty.Client
	baseURL    string
	now        func() time.Time
	logger     *zap.Logger
}

// NewHTTPProvider creates a provider for the gateway at baseURL
func NewHTTPProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPProvider{
		httpClient: client,
		baseURL:    baseURL,
		now:        time.Now,
		logger:     logger,
	}
}

// Generate asks the gateway for a remark; the category is inferred locally
func (p *HTTPProvider) Generate(ctx context.Context, state models.PatientState) (models.Insight, error) {
	if p.baseURL == "" {
		return models.Insight{}, ErrNoEndpoint
	}

	v := state.Vitals
	request := insightRequest{
		Status:      string(state.Status),
		HeartRate:   v.HeartRate,
		Systolic:    v.Systolic,
		Diastolic:   v.Diastolic,
		Temperature: v.Temperature,
		Prompt: fmt.Sprintf(
			"Current Status: %s\nHeart Rate: %.0f bpm\nBlood Pressure: %.0f/%.0f mmHg\nTemperature: %.1f °F\nGenerate a short health insight based on these numbers.",
			state.Status, v.HeartRate, v.Systolic, v.Diastolic, v.Temperature),
	}

	var response insightResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post(p.baseURL)
	if err != nil {
		return models.Insight{}, fmt.Errorf("failed to call insight api: %w", err)
	}
	if resp.IsError() {
		return models.Insight{}, fmt.Errorf("insight api error (status: %d)", resp.StatusCode())
	}

	text := strings.TrimSpace(response.Text)
	if text == "" {
		text = defaultInsightText
	}

	p.logger.Debug("Insight generated",
		zap.String("status", string(state.Status)),
	)
	return models.Insight{
		Content:   text,
		Timestamp: p.now(),
		Category:  InferCategory(state.Status, text),
	}, nil
}
