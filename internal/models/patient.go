package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AlertLevel patient alert classification
type AlertLevel string

const (
	AlertStable   AlertLevel = "STABLE"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Valid reports whether l is one of the three alert levels
func (l AlertLevel) Valid() bool {
	switch l {
	case AlertStable, AlertWarning, AlertCritical:
		return true
	}
	return false
}

// ErrInvalidTime is returned for a malformed HH:MM time-of-day
var ErrInvalidTime = errors.New("invalid time of day")

// Medication scheduled daily dose
type Medication struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Time         string `json:"time"` // HH:MM, local time
	Type         string `json:"type"` // pill, liquid, injection
	Taken        bool   `json:"taken"`
	ReminderSent bool   `json:"reminder_sent"`
}

// DueMinutes returns the scheduled time as minutes since midnight
func (m Medication) DueMinutes() (int, error) {
	return MinutesFromClock(m.Time)
}

// MinutesFromClock parses "HH:MM" into minutes since midnight
func MinutesFromClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// MinutesSinceMidnight local wall-clock minutes of t
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// EmergencyContact caregiver reachable by the external channel
type EmergencyContact struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Relation       string `json:"relation"`
	Phone          string `json:"phone"`
	TelegramChatID string `json:"telegram_chat_id,omitempty"`
	IsPrimary      bool   `json:"is_primary"`
}

// PrimaryContact returns the flagged primary contact, else the first one.
// ok is false when there are no contacts.
func PrimaryContact(contacts []EmergencyContact) (EmergencyContact, bool) {
	for _, c := range contacts {
		if c.IsPrimary {
			return c, true
		}
	}
	if len(contacts) > 0 {
		return contacts[0], true
	}
	return EmergencyContact{}, false
}

// Location last known patient position
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// PatientProfile editable profile fields
type PatientProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Phone string `json:"phone,omitempty"`
}

// InsightCategory tone of a generated insight
type InsightCategory string

const (
	InsightInfo     InsightCategory = "info"
	InsightWarning  InsightCategory = "warning"
	InsightPositive InsightCategory = "positive"
)

// Insight AI-generated health remark
type Insight struct {
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Category  InsightCategory `json:"category"`
}

// PatientState engine snapshot exposed to consumers
type PatientState struct {
	Profile     PatientProfile      `json:"profile"`
	Status      AlertLevel          `json:"status"`
	Vitals      VitalsSample        `json:"vitals"`
	Medications []Medication        `json:"medications"`
	Contacts    []EmergencyContact  `json:"contacts"`
	Logs        []EmergencyLogEntry `json:"logs"` // newest first
	Location    Location            `json:"location"`
	Session     *EscalationSession  `json:"session,omitempty"`
	Insight     *Insight            `json:"insight,omitempty"`
}

// DemoPatient seed snapshot used when the profile store is unreachable
func DemoPatient(id string) PatientState {
	return PatientState{
		Profile: PatientProfile{ID: id, Name: "Guest User", Age: 65},
		Status:  AlertStable,
		Vitals: VitalsSample{
			HeartRate:   72,
			Systolic:    118,
			Diastolic:   76,
			Temperature: 98.6,
		},
		Medications: []Medication{
			{ID: "1", Name: "Lisinopril", Dosage: "10mg", Time: "08:00", Type: "pill", Taken: true},
			{ID: "2", Name: "Metformin", Dosage: "500mg", Time: "12:00", Type: "pill"},
			{ID: "3", Name: "Aspirin", Dosage: "81mg", Time: "21:00", Type: "pill"},
		},
		Contacts: []EmergencyContact{
			{ID: "c1", Name: "Dr. Michael Chen", Relation: "Cardiologist", Phone: "555-0123", IsPrimary: true},
			{ID: "c2", Name: "Sarah Thompson", Relation: "Daughter", Phone: "555-0199"},
		},
		Location: Location{Lat: 34.0522, Lng: -118.2437, Address: "142 Oak Street, Springfield"},
	}
}
