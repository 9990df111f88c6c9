package engine

import (
	"fmt"

	"vitalguard/internal/ledger"
	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// RunCompliance flags every untaken medication whose due time has passed
// and raises one missed-dose event per medication. Flags and log entries
// from one run are committed together.
func (e *Engine) RunCompliance() {
	now := e.now()
	e.update(func(s *state) []Effect {
		var effects []Effect
		medsChanged := false

		// 1. optional day-boundary reset
		day := now.Format("2006-01-02")
		if e.opts.ResetRemindersDaily && s.complianceDay != "" && s.complianceDay != day {
			for i := range s.meds {
				s.meds[i].Taken = false
				s.meds[i].ReminderSent = false
			}
			medsChanged = len(s.meds) > 0
			e.logger.Info("Medication flags reset for new day",
				zap.String("patient_id", s.profile.ID),
				zap.String("day", day),
			)
		}
		s.complianceDay = day

		// 2. classify
		minutes := models.MinutesSinceMidnight(now)
		info, spokenName := contactInfo(s.contacts)
		var entries []models.EmergencyLogEntry
		for i := range s.meds {
			med := &s.meds[i]
			if med.Taken || med.ReminderSent {
				continue
			}
			due, err := med.DueMinutes()
			if err != nil {
				e.logger.Debug("Skipping medication with invalid time",
					zap.String("medication_id", med.ID),
					zap.Error(err),
				)
				continue
			}
			if due >= minutes {
				continue
			}

			// 3. mark once, log once, notify once
			med.ReminderSent = true
			medsChanged = true
			entry := ledger.NewEntry(models.LogTypeMedication,
				fmt.Sprintf("Missed Dose: %s. Alert sent to %s.", med.Name, info), false, now)
			s.ledger.Append(entry)
			entries = append(entries, entry)
			missedDosesTotal.Inc()

			e.logger.Warn("Missed dose detected",
				zap.String("patient_id", s.profile.ID),
				zap.String("medication_id", med.ID),
				zap.String("due", med.Time),
			)
			effects = append(effects,
				NotifyCaregivers{Compose: missedDoseMessage(med.Name, med.Time, info)},
				Speak{Text: fmt.Sprintf("Attention. You missed your %s. I have notified %s.", med.Name, spokenName)},
				Toast{
					Tag:     models.NotificationCaregiver,
					Title:   "Medication Missed",
					Message: fmt.Sprintf("Alert sent to %s. Please take %s.", info, med.Name),
				},
			)
		}

		// 4. one commit for the whole batch
		if !medsChanged {
			return effects
		}
		effects = append(effects, PersistMedications{Medications: s.medicationsCopy()})
		if len(entries) > 0 {
			effects = append(effects, PersistLog{Entries: entries})
		}
		return append(effects, MirrorSnapshot{})
	})
}
