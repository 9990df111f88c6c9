package models

import "time"

// VitalsSample one reading of the tracked vitals
type VitalsSample struct {
	HeartRate   float64   `json:"heart_rate"`  // bpm
	Systolic    float64   `json:"systolic"`    // mmHg
	Diastolic   float64   `json:"diastolic"`   // mmHg
	Temperature float64   `json:"temperature"` // °F
	Timestamp   time.Time `json:"timestamp"`
}

// IsZero reports whether no reading has been recorded
func (s VitalsSample) IsZero() bool {
	return s.HeartRate == 0 && s.Systolic == 0 && s.Diastolic == 0 && s.Temperature == 0
}

// Metric tracked vitals series
type Metric string

const (
	MetricHeartRate   Metric = "heart_rate"
	MetricSystolic    Metric = "systolic"
	MetricDiastolic   Metric = "diastolic"
	MetricTemperature Metric = "temperature"
)

// Metrics all tracked series, in display order
var Metrics = []Metric{MetricHeartRate, MetricSystolic, MetricDiastolic, MetricTemperature}

// Value extracts one metric from the sample
func (s VitalsSample) Value(m Metric) float64 {
	switch m {
	case MetricHeartRate:
		return s.HeartRate
	case MetricSystolic:
		return s.Systolic
	case MetricDiastolic:
		return s.Diastolic
	case MetricTemperature:
		return s.Temperature
	}
	return 0
}

// VitalsPoint history point of one metric
type VitalsPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}
