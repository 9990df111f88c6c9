package vitals

import "vitalguard/internal/models"

// Detector classifies a sample into a suggested alert level
type Detector interface {
	Classify(s models.VitalsSample) models.AlertLevel
}

// ThresholdDetector fixed-threshold classifier
type ThresholdDetector struct {
	CriticalHeartRate  float64
	CriticalSystolic   float64
	WarningHeartRate   float64
	WarningSystolic    float64
	WarningTemperature float64
}

// DefaultThresholds matches the cut-offs used by the insight fallback
func DefaultThresholds() ThresholdDetector {
	return ThresholdDetector{
		CriticalHeartRate:  120,
		CriticalSystolic:   150,
		WarningHeartRate:   100,
		WarningSystolic:    135,
		WarningTemperature: 99.5,
	}
}

// Classify returns CRITICAL, WARNING or STABLE
func (d ThresholdDetector) Classify(s models.VitalsSample) models.AlertLevel {
	switch {
	case s.HeartRate > d.CriticalHeartRate || s.Systolic > d.CriticalSystolic:
		return models.AlertCritical
	case s.HeartRate > d.WarningHeartRate || s.Systolic > d.WarningSystolic || s.Temperature > d.WarningTemperature:
		return models.AlertWarning
	default:
		return models.AlertStable
	}
}
