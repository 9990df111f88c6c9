package engine

import (
	"vitalguard/internal/ledger"
	"vitalguard/internal/models"
	"vitalguard/internal/vitals"

	"go.uber.org/zap"
)

// state live patient state; only touched under Engine.mu
type state struct {
	profile       models.PatientProfile
	status        models.AlertLevel
	vitals        models.VitalsSample
	meds          []models.Medication
	contacts      []models.EmergencyContact
	ledger        *ledger.Ledger
	location      models.Location
	session       *models.EscalationSession
	insight       *models.Insight
	history       *vitals.History
	complianceDay string // local date of the last compliance run
}

func newState(initial models.PatientState, historySize int) *state {
	status := initial.Status
	if !status.Valid() {
		status = models.AlertStable
	}
	s := &state{
		profile:  initial.Profile,
		status:   status,
		vitals:   initial.Vitals,
		meds:     append([]models.Medication(nil), initial.Medications...),
		contacts: append([]models.EmergencyContact(nil), initial.Contacts...),
		ledger:   ledger.New(initial.Logs...),
		location: initial.Location,
		history:  vitals.NewHistory(historySize),
	}
	if initial.Session != nil {
		session := *initial.Session
		s.session = &session
	}
	if initial.Insight != nil {
		in := *initial.Insight
		s.insight = &in
	}
	if !initial.Vitals.IsZero() {
		s.history.Append(initial.Vitals)
	}
	return s
}

func (s *state) snapshot() models.PatientState {
	out := models.PatientState{
		Profile:     s.profile,
		Status:      s.status,
		Vitals:      s.vitals,
		Medications: append([]models.Medication(nil), s.meds...),
		Contacts:    append([]models.EmergencyContact(nil), s.contacts...),
		Logs:        s.ledger.Entries(),
		Location:    s.location,
	}
	if s.session != nil {
		session := *s.session
		out.Session = &session
	}
	if s.insight != nil {
		in := *s.insight
		out.Insight = &in
	}
	return out
}

// transition moves the alert level; a self-transition does nothing
func (e *Engine) transition(s *state, to models.AlertLevel, cause string) {
	from := s.status
	if from == to {
		return
	}
	s.status = to
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	e.logger.Info("Alert level changed",
		zap.String("patient_id", s.profile.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("cause", cause),
	)
}

func (s *state) medicationsCopy() []models.Medication {
	return append([]models.Medication(nil), s.meds...)
}
