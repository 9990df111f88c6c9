package engine

import (
	"fmt"
	"time"

	"vitalguard/internal/ledger"
	"vitalguard/internal/models"

	"go.uber.org/zap"
)

const (
	toneBase     = 800.0
	toneStep     = 100.0
	toneDuration = 150 * time.Millisecond
	rampLength   = 10
)

// Trigger raises a live emergency: CRITICAL status, one unresolved log
// entry, a fresh countdown and an immediate caregiver dispatch
func (e *Engine) Trigger(reason models.SOSReason) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReason, reason)
	}
	now := e.now()
	e.update(func(s *state) []Effect {
		return e.openEmergency(s, reason, now)
	})
	e.armCountdown()
	return nil
}

// openEmergency must be called under the state lock
func (e *Engine) openEmergency(s *state, reason models.SOSReason, now time.Time) []Effect {
	text := triggerCopy[reason]

	e.transition(s, models.AlertCritical, "sos_"+string(reason))
	entry := ledger.NewEntry(reason.LogType(), text.notes, false, now)
	s.ledger.Append(entry)
	s.session = &models.EscalationSession{
		Active:    true,
		Countdown: e.opts.SOSCountdown,
		Reason:    reason,
		OpenedAt:  now,
	}

	e.logger.Warn("SOS triggered",
		zap.String("patient_id", s.profile.ID),
		zap.String("reason", string(reason)),
		zap.String("log_id", entry.ID),
		zap.Int("countdown", e.opts.SOSCountdown),
		zap.Int("open_incidents", len(s.ledger.Unresolved())),
	)

	return []Effect{
		Speak{Text: text.speech},
		countdownTone(e.opts.SOSCountdown),
		Toast{Tag: models.NotificationSystem, Title: text.toastTitle, Message: text.toastBody},
		NotifyCaregivers{Compose: sosMessage(reason)},
		RequestInsight{Delay: e.opts.InsightDelay},
		PersistLog{Entries: []models.EmergencyLogEntry{entry}},
		MirrorSnapshot{},
	}
}

// RunSystemTest opens a test-mode session without touching status or
// caregivers. It is refused while a live emergency is open.
func (e *Engine) RunSystemTest() error {
	now := e.now()
	var refused bool
	e.update(func(s *state) []Effect {
		if s.session != nil && !s.session.TestMode {
			refused = true
			return []Effect{Toast{
				Tag:     models.NotificationSystem,
				Title:   "System Test Unavailable",
				Message: "An emergency is in progress. Resolve it before running a system test.",
			}}
		}

		entry := ledger.NewEntry(models.LogTypeSystemTest, systemTestNotes, true, now)
		s.ledger.Append(entry)
		s.session = &models.EscalationSession{
			Active:    true,
			Countdown: e.opts.TestCountdown,
			TestMode:  true,
			OpenedAt:  now,
		}

		e.logger.Info("System test started",
			zap.String("patient_id", s.profile.ID),
			zap.Int("countdown", e.opts.TestCountdown),
		)
		return []Effect{
			Speak{Text: systemTestSpeech},
			countdownTone(e.opts.TestCountdown),
			PersistLog{Entries: []models.EmergencyLogEntry{entry}},
			MirrorSnapshot{},
		}
	})
	if refused {
		return ErrEmergencyActive
	}
	e.armCountdown()
	return nil
}

// Resolve closes the open session. A live emergency also returns the
// patient to STABLE, acknowledges every unresolved entry and tells the
// caregivers. Without an open session it does nothing and returns false.
func (e *Engine) Resolve() bool {
	var resolved bool
	e.update(func(s *state) []Effect {
		if s.session == nil {
			return nil
		}
		resolved = true

		if s.session.TestMode {
			s.session = nil
			e.logger.Info("System test closed",
				zap.String("patient_id", s.profile.ID),
			)
			return []Effect{MirrorSnapshot{}}
		}

		e.transition(s, models.AlertStable, "resolved")
		changed := s.ledger.ResolveAll()
		s.session = nil

		e.logger.Info("Emergency resolved",
			zap.String("patient_id", s.profile.ID),
			zap.Int("acknowledged", len(changed)),
		)
		return []Effect{
			Speak{Text: resolvedSpeech},
			NotifyCaregivers{Compose: resolvedMessage},
			RequestInsight{},
			PersistLog{Entries: changed},
			MirrorSnapshot{},
		}
	})
	return resolved
}

// ResolveLogEntry acknowledges a single ledger entry
func (e *Engine) ResolveLogEntry(id string) error {
	var err error
	e.update(func(s *state) []Effect {
		entry, ok := s.ledger.Resolve(id)
		if !ok {
			err = fmt.Errorf("%w: unresolved log entry %s", ErrNotFound, id)
			return nil
		}
		return []Effect{
			PersistLog{Entries: []models.EmergencyLogEntry{entry}},
			MirrorSnapshot{},
		}
	})
	return err
}

// TickCountdown advances the open session by one step: a decrement, then
// the tone for the new count. Reaching zero fires nothing. It reports
// whether the countdown still has time left.
func (e *Engine) TickCountdown() bool {
	var remaining int
	e.update(func(s *state) []Effect {
		if s.session == nil || s.session.Countdown <= 0 {
			return nil
		}
		s.session.Countdown--
		remaining = s.session.Countdown
		if remaining == 0 {
			return []Effect{MirrorSnapshot{}}
		}
		return []Effect{countdownTone(remaining), MirrorSnapshot{}}
	})
	return remaining > 0
}

// countdownTone pitch rises as the count approaches zero
func countdownTone(count int) Tone {
	step := rampLength - count
	if step < 0 {
		step = 0
	}
	return Tone{Frequency: toneBase + float64(step)*toneStep, Duration: toneDuration}
}
