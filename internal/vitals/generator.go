package vitals

import (
	"math/rand"
	"sync"
	"time"

	"vitalguard/internal/models"
)

// Source produces the next vitals sample for a tick
type Source interface {
	Next(status models.AlertLevel, prev models.VitalsSample, now time.Time) models.VitalsSample
}

// Band uniform range [Min, Max)
type Band struct {
	Min float64
	Max float64
}

func (b Band) draw(r *rand.Rand) float64 {
	return b.Min + r.Float64()*(b.Max-b.Min)
}

// Contains reports whether v lies in the band
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Bands sampling ranges per alert mode
type Bands struct {
	NormalHeartRate   Band
	CriticalHeartRate Band
	NormalSystolic    Band
	CriticalSystolic  Band
	NormalDiastolic   Band
	CriticalDiastolic Band
	Temperature       Band
}

// DefaultBands resting-adult ranges; critical ranges are shifted well above normal
func DefaultBands() Bands {
	return Bands{
		NormalHeartRate:   Band{Min: 70, Max: 74},
		CriticalHeartRate: Band{Min: 130, Max: 170},
		NormalSystolic:    Band{Min: 115, Max: 121},
		CriticalSystolic:  Band{Min: 160, Max: 180},
		NormalDiastolic:   Band{Min: 74, Max: 78},
		CriticalDiastolic: Band{Min: 90, Max: 105},
		Temperature:       Band{Min: 98.2, Max: 99.0},
	}
}

// Generator simulated vitals source biased by alert level
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	bands Bands
}

// NewGenerator creates a generator; a zero seed uses the current time
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		bands: DefaultBands(),
	}
}

// Bands returns the sampling ranges in use
func (g *Generator) Bands() Bands {
	return g.bands
}

// Next draws a sample. Only CRITICAL shifts heart rate and pressure into the
// high bands; temperature ignores status. prev is accepted for sources that
// smooth against the last reading.
func (g *Generator) Next(status models.AlertLevel, prev models.VitalsSample, now time.Time) models.VitalsSample {
	g.mu.Lock()
	defer g.mu.Unlock()

	hr, sys, dia := g.bands.NormalHeartRate, g.bands.NormalSystolic, g.bands.NormalDiastolic
	if status == models.AlertCritical {
		hr, sys, dia = g.bands.CriticalHeartRate, g.bands.CriticalSystolic, g.bands.CriticalDiastolic
	}

	return models.VitalsSample{
		HeartRate:   hr.draw(g.rng),
		Systolic:    sys.draw(g.rng),
		Diastolic:   dia.draw(g.rng),
		Temperature: g.bands.Temperature.draw(g.rng),
		Timestamp:   now,
	}
}

// StreamSource serves externally ingested samples (wearable feed) and falls
// back to another source when nothing new arrived since the last tick.
type StreamSource struct {
	mu       sync.Mutex
	pending  *models.VitalsSample
	fallback Source
}

// NewStreamSource creates a stream source with the given fallback
func NewStreamSource(fallback Source) *StreamSource {
	return &StreamSource{fallback: fallback}
}

// Push records the latest ingested sample, replacing any unconsumed one
func (s *StreamSource) Push(sample models.VitalsSample) {
	s.mu.Lock()
	s.pending = &sample
	s.mu.Unlock()
}

// Next returns the pending sample once, else the fallback's sample
func (s *StreamSource) Next(status models.AlertLevel, prev models.VitalsSample, now time.Time) models.VitalsSample {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		sample := *pending
		if sample.Timestamp.IsZero() {
			sample.Timestamp = now
		}
		return sample
	}
	if s.fallback == nil {
		prev.Timestamp = now
		return prev
	}
	return s.fallback.Next(status, prev, now)
}
