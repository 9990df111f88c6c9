package mqtt

import "fmt"

const defaultTopicPrefix = "vitalguard"

// Topics topic layout for one patient
type Topics struct {
	Prefix    string
	PatientID string
}

// NewTopics creates the layout; an empty prefix means "vitalguard"
func NewTopics(prefix, patientID string) Topics {
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return Topics{Prefix: prefix, PatientID: patientID}
}

// Vitals wearable sample feed
func (t Topics) Vitals() string {
	return fmt.Sprintf("%s/%s/vitals", t.Prefix, t.PatientID)
}

// Speech bedside speaker commands
func (t Topics) Speech() string {
	return fmt.Sprintf("%s/%s/speech", t.Prefix, t.PatientID)
}

// Tone bedside tone commands
func (t Topics) Tone() string {
	return fmt.Sprintf("%s/%s/tone", t.Prefix, t.PatientID)
}

// CaregiverAlerts alert feed of one contact
func (t Topics) CaregiverAlerts(contactID string) string {
	return fmt.Sprintf("%s/caregivers/%s/alerts", t.Prefix, contactID)
}
