package repository

import (
	"context"
	"fmt"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// Persistence adapts the repositories to the engine's write-back port
type Persistence struct {
	profiles *ProfileRepository
	logs     *EmergencyLogRepository
	logger   *zap.Logger
}

// NewPersistence creates the adapter
func NewPersistence(profiles *ProfileRepository, logs *EmergencyLogRepository, logger *zap.Logger) *Persistence {
	return &Persistence{
		profiles: profiles,
		logs:     logs,
		logger:   logger,
	}
}

// Load builds the starting snapshot for one patient
func (p *Persistence) Load(ctx context.Context, patientID string, logLimit int) (models.PatientState, error) {
	// 1. profile and location
	profile, location, err := p.profiles.GetPatient(ctx, patientID)
	if err != nil {
		return models.PatientState{}, err
	}

	// 2. schedule and contacts
	meds, err := p.profiles.ListMedications(ctx, patientID)
	if err != nil {
		return models.PatientState{}, err
	}
	contacts, err := p.profiles.ListContacts(ctx, patientID)
	if err != nil {
		return models.PatientState{}, err
	}

	// 3. recent ledger
	logs, err := p.logs.ListEntries(ctx, patientID, logLimit)
	if err != nil {
		return models.PatientState{}, err
	}

	p.logger.Info("Patient loaded from profile store",
		zap.String("patient_id", patientID),
		zap.Int("medication_count", len(meds)),
		zap.Int("contact_count", len(contacts)),
		zap.Int("log_count", len(logs)),
	)
	return models.PatientState{
		Profile:     *profile,
		Status:      models.AlertStable,
		Medications: meds,
		Contacts:    contacts,
		Logs:        logs,
		Location:    *location,
	}, nil
}

// SaveLogEntries persists created or resolved ledger entries
func (p *Persistence) SaveLogEntries(ctx context.Context, patientID string, entries []models.EmergencyLogEntry) error {
	return p.logs.SaveEntries(ctx, patientID, entries)
}

// SaveMedications persists the full schedule
func (p *Persistence) SaveMedications(ctx context.Context, patientID string, meds []models.Medication) error {
	return p.profiles.SaveMedications(ctx, patientID, meds)
}

// SaveContact persists one contact
func (p *Persistence) SaveContact(ctx context.Context, patientID string, contact models.EmergencyContact) error {
	return p.profiles.SaveContact(ctx, patientID, contact)
}

// DeleteContact removes one contact
func (p *Persistence) DeleteContact(ctx context.Context, patientID, contactID string) error {
	return p.profiles.DeleteContact(ctx, patientID, contactID)
}

// SaveProfile persists the editable profile fields
func (p *Persistence) SaveProfile(ctx context.Context, profile models.PatientProfile) error {
	if err := p.profiles.UpdatePatient(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
