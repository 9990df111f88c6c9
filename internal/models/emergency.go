package models

import "time"

// Emergency log entry types
const (
	LogTypeFall       = "Fall Detection"
	LogTypeCardiac    = "Critical Vitals Spike"
	LogTypeMedication = "Medication Alert"
	LogTypeSystemTest = "System Test"
)

// AckSuffix appended to notes when an entry is resolved
const AckSuffix = " [User Acknowledged]"

// SOSReason manual trigger reason
type SOSReason string

const (
	ReasonCardiac SOSReason = "cardiac"
	ReasonFall    SOSReason = "fall"
)

// Valid reports whether r is a known reason
func (r SOSReason) Valid() bool {
	return r == ReasonCardiac || r == ReasonFall
}

// LogType maps the reason to its ledger tag
func (r SOSReason) LogType() string {
	if r == ReasonFall {
		return LogTypeFall
	}
	return LogTypeCardiac
}

// EmergencyLogEntry ledger record
type EmergencyLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Resolved  bool      `json:"resolved"`
	Notes     string    `json:"notes"`
}

// EscalationSession open SOS countdown
type EscalationSession struct {
	Active    bool      `json:"active"`
	Countdown int       `json:"countdown"` // seconds remaining, never negative
	TestMode  bool      `json:"test_mode"`
	Reason    SOSReason `json:"reason,omitempty"`
	OpenedAt  time.Time `json:"opened_at"`
}

// NotificationChannel toast tag
type NotificationChannel string

const (
	NotificationCaregiver NotificationChannel = "caregiver"
	NotificationSystem    NotificationChannel = "system"
)

// Notification transient in-app toast
type Notification struct {
	ID        string              `json:"id"`
	Channel   NotificationChannel `json:"channel"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Timestamp time.Time           `json:"timestamp"`
}
