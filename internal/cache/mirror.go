package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalguard/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	realtimeSuffix     = ":realtime"
	emergencyLogSuffix = ":emergency-log"

	defaultKeyPrefix = "vitalguard:patient:"
	defaultTTL       = 30 * time.Second
)

// Mirror publishes the patient snapshot and emergency log to Redis for
// sidecar consumers. Redis is never the source of truth.
type Mirror struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewMirror creates a mirror; empty prefix and zero ttl take defaults
func NewMirror(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *Mirror {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Mirror{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// RealtimeKey snapshot key of one patient
func (m *Mirror) RealtimeKey(patientID string) string {
	return m.keyPrefix + patientID + realtimeSuffix
}

// LogStream emergency log stream of one patient
func (m *Mirror) LogStream(patientID string) string {
	return m.keyPrefix + patientID + emergencyLogSuffix
}

// StoreSnapshot writes the snapshot as JSON with the configured TTL
func (m *Mirror) StoreSnapshot(ctx context.Context, state models.PatientState) error {
	key := m.RealtimeKey(state.Profile.ID)

	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := m.client.Set(ctx, key, jsonData, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot cache: %w", err)
	}

	m.logger.Debug("Updated snapshot cache",
		zap.String("patient_id", state.Profile.ID),
		zap.String("key", key),
		zap.String("status", string(state.Status)),
	)
	return nil
}

// GetSnapshot reads the last mirrored snapshot
func (m *Mirror) GetSnapshot(ctx context.Context, patientID string) (*models.PatientState, error) {
	val, err := m.client.Get(ctx, m.RealtimeKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("snapshot not found for patient: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var state models.PatientState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &state, nil
}

// AppendLogEntries adds one stream message per entry, in the given order
func (m *Mirror) AppendLogEntries(ctx context.Context, patientID string, entries []models.EmergencyLogEntry) error {
	stream := m.LogStream(patientID)
	for _, e := range entries {
		id, err := m.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"entry_id":  e.ID,
				"type":      e.Type,
				"resolved":  fmt.Sprintf("%t", e.Resolved),
				"notes":     e.Notes,
				"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
			},
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to append emergency log entry %s: %w", e.ID, err)
		}
		m.logger.Debug("Emergency log entry mirrored",
			zap.String("stream", stream),
			zap.String("message_id", id),
			zap.String("entry_id", e.ID),
		)
	}
	return nil
}
