package engine

import (
	"fmt"

	"vitalguard/internal/models"
)

// trigger copy per reason
var triggerCopy = map[models.SOSReason]struct {
	notes      string
	alert      string
	speech     string
	toastTitle string
	toastBody  string
}{
	models.ReasonCardiac: {
		notes:      "Heart rate > 140 BPM detected via manual simulation.",
		alert:      "CRITICAL (Heart Rate Spike)",
		speech:     "Warning. Heart rate anomaly detected. Emergency protocols initiated.",
		toastTitle: "CRITICAL ALERT",
		toastBody:  "Abnormal heart rate detected. Emergency contacts are being notified.",
	},
	models.ReasonFall: {
		notes:      "Sudden impact detected. User unresponsive.",
		alert:      "CRITICAL (Fall Detected)",
		speech:     "Fall detected. Calling emergency contacts in 10 seconds.",
		toastTitle: "FALL DETECTED",
		toastBody:  "Hard impact detected. Alerting contacts.",
	},
}

const (
	systemTestNotes  = "User initiated alarm system diagnostic check."
	systemTestSpeech = "System test initiated. Alarm speakers functional."
	resolvedSpeech   = "Alarm cancelled. Systems returning to normal."

	testMessage        = "🏥 *VitalGuard Test Message*\n\nYour notification system is working correctly."
	testSuccessSpeech  = "Test message sent successfully."
	testFailureSpeech  = "Could not send message. Please check your bot token."
	noContactsFallback = "Emergency Services"
)

func sosMessage(reason models.SOSReason) func(models.PatientState) string {
	alert := triggerCopy[reason].alert
	return func(s models.PatientState) string {
		return fmt.Sprintf("🚨 *SOS EMERGENCY ALERT* 🚨\n\nPatient: %s\nStatus: %s\nLocation: %s\n\nPlease respond immediately.",
			s.Profile.Name, alert, s.Location.Address)
	}
}

func resolvedMessage(s models.PatientState) string {
	return fmt.Sprintf("✅ *Alert Resolved*\n\nPatient %s has cancelled the SOS alarm and marked themselves as safe.",
		s.Profile.Name)
}

func missedDoseMessage(medication, due, contactInfo string) func(models.PatientState) string {
	return func(s models.PatientState) string {
		return fmt.Sprintf("⚠️ *Medication Reminder*\n\nPatient %s missed their dose of *%s* at %s.\n\nAlerting primary contact: %s",
			s.Profile.Name, medication, due, contactInfo)
	}
}

func staticMessage(text string) func(models.PatientState) string {
	return func(models.PatientState) string { return text }
}

// contactInfo "Name (phone)" of the primary contact, or the placeholder
func contactInfo(contacts []models.EmergencyContact) (info, spokenName string) {
	primary, ok := models.PrimaryContact(contacts)
	if !ok {
		return noContactsFallback, "your caregiver"
	}
	return fmt.Sprintf("%s (%s)", primary.Name, primary.Phone), primary.Name
}
