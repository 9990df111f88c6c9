package engine

import (
	"time"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// TickVitals draws the next sample against the current status and commits
// it with its history points
func (e *Engine) TickVitals() {
	now := e.now()
	var opened bool
	e.update(func(s *state) []Effect {
		sample := e.deps.Source.Next(s.status, s.vitals, now)
		s.vitals = sample
		s.history.Append(sample)

		effects := []Effect{MirrorSnapshot{}}
		if e.opts.DetectorEnabled {
			detected := e.detect(s, sample, now)
			opened = len(detected) > 0
			effects = append(effects, detected...)
		}
		return effects
	})
	if opened {
		e.armCountdown()
	}
}

// detect applies the passive detector. CRITICAL is never left here; only
// Resolve does that.
func (e *Engine) detect(s *state, sample models.VitalsSample, now time.Time) []Effect {
	suggested := e.deps.Detector.Classify(sample)
	switch {
	case s.status == models.AlertCritical:
		return nil
	case suggested == models.AlertCritical:
		e.logger.Warn("Detector tripped",
			zap.String("patient_id", s.profile.ID),
			zap.Float64("heart_rate", sample.HeartRate),
			zap.Float64("systolic", sample.Systolic),
		)
		return e.openEmergency(s, models.ReasonCardiac, now)
	case suggested != s.status:
		e.transition(s, suggested, "detector")
	}
	return nil
}

// IngestSample hands an externally measured sample to the vitals source;
// the next vitals tick commits it
func (e *Engine) IngestSample(sample models.VitalsSample) error {
	sink, ok := e.deps.Source.(SampleSink)
	if !ok {
		return ErrNoSampleSink
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = e.now()
	}
	sink.Push(sample)
	return nil
}
