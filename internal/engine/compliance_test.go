package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vitalguard/internal/models"
	"vitalguard/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func medicationLogs(logs []models.EmergencyLogEntry) []models.EmergencyLogEntry {
	var out []models.EmergencyLogEntry
	for _, l := range logs {
		if l.Type == models.LogTypeMedication {
			out = append(out, l)
		}
	}
	return out
}

func TestRunCompliance_FlagsOncePerDose(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{{ID: "m1", Name: "Lisinopril", Time: "08:00"}}
	clock := &fixedClock{now: at(8, 0)}
	e, notifier := newTestEngine(t, initial, testOptions(), Deps{}, clock)

	e.RunCompliance()
	assert.Empty(t, e.Snapshot().Logs)
	assert.False(t, e.Snapshot().Medications[0].ReminderSent)

	clock.Set(at(8, 1))
	e.RunCompliance()
	snap := e.Snapshot()
	assert.True(t, snap.Medications[0].ReminderSent)
	require.Len(t, medicationLogs(snap.Logs), 1)
	assert.Equal(t, "Missed Dose: Lisinopril. Alert sent to Dr. Michael Chen (555-0123).", snap.Logs[0].Notes)
	assert.False(t, snap.Logs[0].Resolved)

	clock.Set(at(8, 2))
	e.RunCompliance()
	assert.Len(t, medicationLogs(e.Snapshot().Logs), 1)

	e.Close()
	caregiver := notifier.texts(notify.ChannelCaregiver)
	require.Len(t, caregiver, 1)
	assert.Equal(t,
		"⚠️ *Medication Reminder*\n\nPatient Margaret Doe missed their dose of *Lisinopril* at 08:00.\n\nAlerting primary contact: Dr. Michael Chen (555-0123)",
		caregiver[0])
	assert.Equal(t, []string{"Attention. You missed your Lisinopril. I have notified Dr. Michael Chen."}, notifier.texts(notify.ChannelSpeech))

	toasts := notifier.payloads(notify.ChannelToast)
	require.Len(t, toasts, 1)
	assert.Equal(t, "Medication Missed", toasts[0].Title)
	assert.Equal(t, models.NotificationCaregiver, toasts[0].Tag)
}

func TestRunCompliance_TakenBeforeDueIsNeverFlagged(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{{ID: "m1", Name: "Metformin", Time: "12:00"}}
	clock := &fixedClock{now: at(11, 0)}
	e, _ := newTestEngine(t, initial, testOptions(), Deps{}, clock)

	require.NoError(t, e.ToggleMedication("m1"))
	for _, ts := range []time.Time{at(12, 1), at(18, 0), at(23, 59)} {
		clock.Set(ts)
		e.RunCompliance()
	}

	snap := e.Snapshot()
	assert.False(t, snap.Medications[0].ReminderSent)
	assert.Empty(t, snap.Logs)
}

func TestRunCompliance_EndToEndMorning(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{
		{ID: "m1", Name: "Lisinopril", Time: "07:00"},
		{ID: "m2", Name: "Metformin", Time: "12:00"},
		{ID: "m3", Name: "Aspirin", Time: "21:00"},
	}
	clock := &fixedClock{now: at(7, 5)}
	e, _ := newTestEngine(t, initial, testOptions(), Deps{}, clock)

	e.RunCompliance()

	snap := e.Snapshot()
	logs := medicationLogs(snap.Logs)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Notes, "Lisinopril")
	assert.True(t, snap.Medications[0].ReminderSent)
	assert.False(t, snap.Medications[1].ReminderSent)
	assert.False(t, snap.Medications[2].ReminderSent)
	assert.Equal(t, models.AlertStable, snap.Status)
}

func TestRunCompliance_NoContactsFallsBack(t *testing.T) {
	initial := stablePatient()
	initial.Contacts = nil
	initial.Medications = []models.Medication{{ID: "m1", Name: "Aspirin", Time: "06:00"}}

	sender := &countingSender{}
	toasts := notify.NewToastQueue(20)
	dispatcher := notify.NewDispatcher(nil, nil, toasts,
		notify.NewCaregiverChannel(sender, toasts, zap.NewNop()), time.Second, zap.NewNop())
	e, _ := newTestEngine(t, initial, testOptions(), Deps{Notifier: dispatcher, Toasts: toasts}, &fixedClock{now: at(7, 0)})

	e.RunCompliance()
	assert.Equal(t, "Missed Dose: Aspirin. Alert sent to Emergency Services.", e.Snapshot().Logs[0].Notes)

	e.Close()
	dispatcher.Wait()
	assert.Zero(t, sender.calls())

	var titles []string
	for _, n := range e.Toasts() {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, "No Contacts Configured")
	assert.Contains(t, titles, "Medication Missed")
}

func TestRunCompliance_DispatchFailureDoesNotStopBatch(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{
		{ID: "m1", Name: "Lisinopril", Time: "06:00"},
		{ID: "m2", Name: "Metformin", Time: "06:30"},
	}
	sender := &countingSender{err: errors.New("gateway down")}
	toasts := notify.NewToastQueue(20)
	dispatcher := notify.NewDispatcher(nil, nil, toasts,
		notify.NewCaregiverChannel(sender, toasts, zap.NewNop()), time.Second, zap.NewNop())
	clock := &fixedClock{now: at(7, 0)}
	e, _ := newTestEngine(t, initial, testOptions(), Deps{Notifier: dispatcher, Toasts: toasts}, clock)

	e.RunCompliance()
	assert.Len(t, medicationLogs(e.Snapshot().Logs), 2)

	clock.Set(at(7, 1))
	e.RunCompliance()
	assert.Len(t, medicationLogs(e.Snapshot().Logs), 2)

	e.Close()
	dispatcher.Wait()
	assert.Equal(t, 4, sender.calls())

	failed := 0
	for _, n := range toasts.List() {
		if n.Title == "Delivery Failed" {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
}

func TestRunCompliance_InvalidTimeSkipped(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{
		{ID: "bad", Name: "Mystery", Time: "25:99"},
		{ID: "m1", Name: "Aspirin", Time: "06:00"},
	}
	e, _ := newTestEngine(t, initial, testOptions(), Deps{}, &fixedClock{now: at(7, 0)})

	e.RunCompliance()
	snap := e.Snapshot()
	assert.False(t, snap.Medications[0].ReminderSent)
	assert.True(t, snap.Medications[1].ReminderSent)
}

func TestRunCompliance_ReminderPermanentByDefault(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{{ID: "m1", Name: "Aspirin", Time: "06:00"}}
	clock := &fixedClock{now: at(7, 0)}
	e, _ := newTestEngine(t, initial, testOptions(), Deps{}, clock)

	e.RunCompliance()
	clock.Set(at(7, 0).AddDate(0, 0, 1))
	e.RunCompliance()

	assert.True(t, e.Snapshot().Medications[0].ReminderSent)
	assert.Len(t, medicationLogs(e.Snapshot().Logs), 1)
}

func TestRunCompliance_DailyReset(t *testing.T) {
	initial := stablePatient()
	initial.Medications = []models.Medication{
		{ID: "m1", Name: "Aspirin", Time: "06:00"},
		{ID: "m2", Name: "Metformin", Time: "12:00", Taken: true},
	}
	opts := testOptions()
	opts.ResetRemindersDaily = true
	clock := &fixedClock{now: at(7, 0)}
	e, _ := newTestEngine(t, initial, opts, Deps{}, clock)

	e.RunCompliance()
	require.Len(t, medicationLogs(e.Snapshot().Logs), 1)

	clock.Set(at(7, 0).AddDate(0, 0, 1))
	e.RunCompliance()

	snap := e.Snapshot()
	assert.Len(t, medicationLogs(snap.Logs), 2)
	assert.True(t, snap.Medications[0].ReminderSent)
	assert.False(t, snap.Medications[1].Taken)
	assert.False(t, snap.Medications[1].ReminderSent)
	for _, l := range medicationLogs(snap.Logs) {
		assert.True(t, strings.Contains(l.Notes, "Aspirin"))
	}
}

// countingSender notify.Sender that counts attempts
type countingSender struct {
	mu  sync.Mutex
	n   int
	err error
}

func (s *countingSender) Name() string { return "counting" }

func (s *countingSender) Ready() error { return nil }

func (s *countingSender) Send(_ context.Context, _ models.EmergencyContact, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.err
}

func (s *countingSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
