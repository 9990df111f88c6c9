package engine

import (
	"context"
	"fmt"
	"strings"

	"vitalguard/internal/geo"
	"vitalguard/internal/models"
	"vitalguard/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToggleMedication flips the taken flag. reminderSent is left alone.
func (e *Engine) ToggleMedication(id string) error {
	var err error
	e.update(func(s *state) []Effect {
		for i := range s.meds {
			if s.meds[i].ID != id {
				continue
			}
			s.meds[i].Taken = !s.meds[i].Taken
			return []Effect{
				PersistMedications{Medications: s.medicationsCopy()},
				MirrorSnapshot{},
			}
		}
		err = fmt.Errorf("%w: medication %s", ErrNotFound, id)
		return nil
	})
	return err
}

// AddMedication validates and appends a medication; an empty id is assigned
func (e *Engine) AddMedication(m models.Medication) (models.Medication, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return models.Medication{}, fmt.Errorf("%w: name is required", ErrInvalidMedication)
	}
	if _, err := m.DueMinutes(); err != nil {
		return models.Medication{}, fmt.Errorf("%w: %v", ErrInvalidMedication, err)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Type == "" {
		m.Type = "pill"
	}

	e.update(func(s *state) []Effect {
		s.meds = append(s.meds, m)
		return []Effect{
			PersistMedications{Medications: s.medicationsCopy()},
			Toast{Tag: models.NotificationSystem, Title: "Medication Added", Message: fmt.Sprintf("%s scheduled for %s.", m.Name, m.Time)},
			MirrorSnapshot{},
		}
	})
	return m, nil
}

// AddContact appends a contact. A new primary contact demotes the old one.
func (e *Engine) AddContact(c models.EmergencyContact) (models.EmergencyContact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.EmergencyContact{}, fmt.Errorf("%w: name is required", ErrInvalidContact)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	e.update(func(s *state) []Effect {
		var effects []Effect
		if c.IsPrimary {
			for i := range s.contacts {
				if s.contacts[i].IsPrimary {
					s.contacts[i].IsPrimary = false
					effects = append(effects, PersistContact{Contact: s.contacts[i]})
				}
			}
		}
		s.contacts = append(s.contacts, c)
		return append(effects, PersistContact{Contact: c}, MirrorSnapshot{})
	})
	return c, nil
}

// RemoveContact deletes one contact
func (e *Engine) RemoveContact(id string) error {
	var err error
	e.update(func(s *state) []Effect {
		for i, c := range s.contacts {
			if c.ID != id {
				continue
			}
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return []Effect{PersistContact{Contact: c, Delete: true}, MirrorSnapshot{}}
		}
		err = fmt.Errorf("%w: contact %s", ErrNotFound, id)
		return nil
	})
	return err
}

// UpdateProfile replaces the editable profile fields; the id is kept
func (e *Engine) UpdateProfile(p models.PatientProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	e.update(func(s *state) []Effect {
		p.ID = s.profile.ID
		s.profile = p
		return []Effect{PersistProfile{Profile: p}, MirrorSnapshot{}}
	})
	return nil
}

// UpdateLocation records coordinates immediately with a coordinate label,
// then resolves a street label in the background. The late label is only
// applied if the coordinates have not moved since.
func (e *Engine) UpdateLocation(lat, lng float64) {
	e.update(func(s *state) []Effect {
		s.location = models.Location{Lat: lat, Lng: lng, Address: geo.CoordinateLabel(lat, lng)}
		return []Effect{MirrorSnapshot{}}
	})
	if e.deps.Geocoder == nil {
		return
	}

	e.goAsync("geocode", func(ctx context.Context) {
		label, err := e.deps.Geocoder.Reverse(ctx, lat, lng)
		if err != nil {
			e.logger.Warn("Reverse geocode failed",
				zap.Float64("lat", lat),
				zap.Float64("lng", lng),
				zap.Error(err),
			)
			return
		}
		e.update(func(s *state) []Effect {
			if s.location.Lat != lat || s.location.Lng != lng || s.location.Address == label {
				return nil
			}
			s.location.Address = label
			return []Effect{MirrorSnapshot{}}
		})
	})
}

// TestCaregiverChannel sends a test message to every contact and reports
// the outcome by speech and toast
func (e *Engine) TestCaregiverChannel() {
	e.emit(
		Toast{Tag: models.NotificationCaregiver, Title: "Caregiver Channel", Message: "Sending test message..."},
		NotifyCaregivers{
			Compose:  staticMessage(testMessage),
			OnReport: e.reportChannelTest,
		},
	)
}

func (e *Engine) reportChannelTest(report notify.DeliveryReport) {
	if report.Delivered > 0 {
		e.emit(
			Speak{Text: testSuccessSpeech},
			Toast{Tag: models.NotificationCaregiver, Title: "Caregiver Channel", Message: "Success! Test message " + report.Summary() + "."},
		)
		return
	}
	e.emit(
		Speak{Text: testFailureSpeech},
		Toast{
			Tag:     models.NotificationSystem,
			Title:   "Connection Failed",
			Message: "Could not send the test message. Please check the caregiver channel settings and contacts.",
		},
	)
}
