package insight

import (
	"context"
	"strings"
	"time"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// Provider generates a short health remark for a snapshot
type Provider interface {
	Generate(ctx context.Context, state models.PatientState) (models.Insight, error)
}

// InferCategory warning for elevated status; positive when the text sounds
// reassuring; info otherwise
func InferCategory(status models.AlertLevel, text string) models.InsightCategory {
	if status == models.AlertCritical || status == models.AlertWarning {
		return models.InsightWarning
	}
	lower := strings.ToLower(text)
	for _, word := range []string{"good", "excellent", "stable"} {
		if strings.Contains(lower, word) {
			return models.InsightPositive
		}
	}
	return models.InsightInfo
}

// SimulatedProvider rule-based remarks keyed by alert level
type SimulatedProvider struct {
	now func() time.Time
}

// NewSimulatedProvider creates the offline provider
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{now: time.Now}
}

// Generate never fails
func (p *SimulatedProvider) Generate(_ context.Context, state models.PatientState) (models.Insight, error) {
	in := models.Insight{Timestamp: p.now()}
	switch state.Status {
	case models.AlertCritical:
		in.Content = "⚠️ CRITICAL ALERT: Heart rate spike detected (>120 BPM). Emergency protocols recommended immediately."
		in.Category = models.InsightWarning
	case models.AlertWarning:
		in.Content = "Observation: Slight elevation in blood pressure detected. Advise patient to sit and hydrate."
		in.Category = models.InsightWarning
	default:
		in.Content = "Health Status: Stable. Vitals are within normal ranges. Keep up the good work!"
		in.Category = models.InsightPositive
	}
	return in, nil
}

// FallbackProvider answers from primary and falls back on any error
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	logger   *zap.Logger
}

// NewFallbackProvider chains two providers; a nil primary always uses fallback
func NewFallbackProvider(primary, fallback Provider, logger *zap.Logger) *FallbackProvider {
	return &FallbackProvider{primary: primary, fallback: fallback, logger: logger}
}

// Generate tries primary then fallback
func (p *FallbackProvider) Generate(ctx context.Context, state models.PatientState) (models.Insight, error) {
	if p.primary != nil {
		in, err := p.primary.Generate(ctx, state)
		if err == nil {
			return in, nil
		}
		p.logger.Warn("Insight provider failed, using fallback",
			zap.Error(err),
		)
	}
	return p.fallback.Generate(ctx, state)
}
