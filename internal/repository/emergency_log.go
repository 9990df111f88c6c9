package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// EmergencyLogRepository emergency ledger rows
type EmergencyLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmergencyLogRepository creates an emergency log repository
func NewEmergencyLogRepository(db *sql.DB, logger *zap.Logger) *EmergencyLogRepository {
	return &EmergencyLogRepository{
		db:     db,
		logger: logger,
	}
}

// SaveEntries inserts new entries and updates resolution of known ones.
// Type and timestamp of an existing row never change.
func (r *EmergencyLogRepository) SaveEntries(ctx context.Context, patientID string, entries []models.EmergencyLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO emergency_logs (entry_id, patient_id, occurred_at, entry_type, resolved, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entry_id) DO UPDATE SET
			resolved = EXCLUDED.resolved,
			notes = EXCLUDED.notes
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query, e.ID, patientID, e.Timestamp, e.Type, e.Resolved, e.Notes); err != nil {
			return fmt.Errorf("failed to save emergency log entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit emergency log: %w", err)
	}

	r.logger.Debug("Emergency log entries saved",
		zap.String("patient_id", patientID),
		zap.Int("count", len(entries)),
	)
	return nil
}

// ListEntries returns the most recent entries, newest first
func (r *EmergencyLogRepository) ListEntries(ctx context.Context, patientID string, limit int) ([]models.EmergencyLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT entry_id, occurred_at, entry_type, resolved, notes
		FROM emergency_logs
		WHERE patient_id = $1
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency log: %w", err)
	}
	defer rows.Close()

	var entries []models.EmergencyLogEntry
	for rows.Next() {
		var e models.EmergencyLogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Resolved, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan emergency log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emergency log: %w", err)
	}
	return entries, nil
}
