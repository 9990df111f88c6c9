package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// ErrNotFound no row for the requested id
var ErrNotFound = errors.New("not found")

// ProfileRepository patient profile, medications and contacts
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a profile repository
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetPatient loads the profile and last known location
func (r *ProfileRepository) GetPatient(ctx context.Context, patientID string) (*models.PatientProfile, *models.Location, error) {
	if patientID == "" {
		return nil, nil, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT patient_id, name, age, phone, lat, lng, address
		FROM patients
		WHERE patient_id = $1
	`

	var profile models.PatientProfile
	var location models.Location
	var phone, address sql.NullString
	var lat, lng sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Age,
		&phone,
		&lat,
		&lng,
		&address,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("%w: patient_id=%s", ErrNotFound, patientID)
		}
		return nil, nil, fmt.Errorf("failed to get patient: %w", err)
	}

	profile.Phone = phone.String
	location.Lat = lat.Float64
	location.Lng = lng.Float64
	location.Address = address.String
	return &profile, &location, nil
}

// UpdatePatient writes the editable profile fields
func (r *ProfileRepository) UpdatePatient(ctx context.Context, profile models.PatientProfile) error {
	query := `
		UPDATE patients
		SET name = $2, age = $3, phone = NULLIF($4, ''), updated_at = NOW()
		WHERE patient_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, profile.ID, profile.Name, profile.Age, profile.Phone)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: patient_id=%s", ErrNotFound, profile.ID)
	}
	return nil
}

// ListMedications returns the schedule ordered by time of day
func (r *ProfileRepository) ListMedications(ctx context.Context, patientID string) ([]models.Medication, error) {
	query := `
		SELECT medication_id, name, dosage, scheduled_time, form, taken, reminder_sent
		FROM medications
		WHERE patient_id = $1
		ORDER BY scheduled_time, medication_id
	`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var meds []models.Medication
	for rows.Next() {
		var m models.Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.Dosage, &m.Time, &m.Type, &m.Taken, &m.ReminderSent); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medications: %w", err)
	}
	return meds, nil
}

// SaveMedications upserts every medication in one transaction
func (r *ProfileRepository) SaveMedications(ctx context.Context, patientID string, meds []models.Medication) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO medications (medication_id, patient_id, name, dosage, scheduled_time, form, taken, reminder_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (medication_id) DO UPDATE SET
			name = EXCLUDED.name,
			dosage = EXCLUDED.dosage,
			scheduled_time = EXCLUDED.scheduled_time,
			form = EXCLUDED.form,
			taken = EXCLUDED.taken,
			reminder_sent = EXCLUDED.reminder_sent,
			updated_at = NOW()
	`
	for _, m := range meds {
		if _, err := tx.ExecContext(ctx, query, m.ID, patientID, m.Name, m.Dosage, m.Time, m.Type, m.Taken, m.ReminderSent); err != nil {
			return fmt.Errorf("failed to save medication %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit medications: %w", err)
	}

	r.logger.Debug("Medications saved",
		zap.String("patient_id", patientID),
		zap.Int("count", len(meds)),
	)
	return nil
}

// ListContacts returns contacts, primary first
func (r *ProfileRepository) ListContacts(ctx context.Context, patientID string) ([]models.EmergencyContact, error) {
	query := `
		SELECT contact_id, name, relation, phone, telegram_chat_id, is_primary
		FROM emergency_contacts
		WHERE patient_id = $1
		ORDER BY is_primary DESC, created_at, contact_id
	`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.EmergencyContact
	for rows.Next() {
		var c models.EmergencyContact
		var relation, chatID sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &relation, &c.Phone, &chatID, &c.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.Relation = relation.String
		c.TelegramChatID = chatID.String
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

// SaveContact inserts or updates one contact
func (r *ProfileRepository) SaveContact(ctx context.Context, patientID string, c models.EmergencyContact) error {
	query := `
		INSERT INTO emergency_contacts (contact_id, patient_id, name, relation, phone, telegram_chat_id, is_primary)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)
		ON CONFLICT (contact_id) DO UPDATE SET
			name = EXCLUDED.name,
			relation = EXCLUDED.relation,
			phone = EXCLUDED.phone,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			is_primary = EXCLUDED.is_primary
	`
	if _, err := r.db.ExecContext(ctx, query, c.ID, patientID, c.Name, c.Relation, c.Phone, c.TelegramChatID, c.IsPrimary); err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// DeleteContact removes one contact
func (r *ProfileRepository) DeleteContact(ctx context.Context, patientID, contactID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM emergency_contacts WHERE patient_id = $1 AND contact_id = $2`,
		patientID, contactID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: contact_id=%s", ErrNotFound, contactID)
	}
	return nil
}
