package engine

import (
	"sync"
	"time"

	"vitalguard/internal/models"
	"vitalguard/internal/notify"
)

// Effect side effect declared by a committed state transition. Effects are
// executed after the commit, in commit order, never under the state lock.
type Effect interface {
	effect()
}

// Speak utterance on the speech channel
type Speak struct {
	Text string
}

// Tone short audible tone
type Tone struct {
	Frequency float64
	Duration  time.Duration
}

// Toast in-app notification
type Toast struct {
	Tag     models.NotificationChannel
	Title   string
	Message string
}

// NotifyCaregivers external caregiver dispatch. Compose runs at execution
// time against the latest snapshot, so names and addresses are current.
type NotifyCaregivers struct {
	Compose  func(state models.PatientState) string
	OnReport func(report notify.DeliveryReport)
}

// RequestInsight asks the insight provider for a fresh remark after Delay
type RequestInsight struct {
	Delay time.Duration
}

// PersistLog writes created or changed ledger entries
type PersistLog struct {
	Entries []models.EmergencyLogEntry
}

// PersistMedications writes the full medication list
type PersistMedications struct {
	Medications []models.Medication
}

// PersistContact upserts or deletes one contact
type PersistContact struct {
	Contact models.EmergencyContact
	Delete  bool
}

// PersistProfile writes the editable profile fields
type PersistProfile struct {
	Profile models.PatientProfile
}

// MirrorSnapshot publishes the latest snapshot to the realtime mirror
type MirrorSnapshot struct{}

func (Speak) effect() {}
func (Tone) effect() {}
func (Toast) effect() {}
func (NotifyCaregivers) effect() {}
func (RequestInsight) effect() {}
func (PersistLog) effect() {}
func (PersistMedications) effect() {}
func (PersistContact) effect() {}
func (PersistProfile) effect() {}
func (MirrorSnapshot) effect() {}

// isIO effects that talk to stores rather than the patient
func isIO(fx Effect) bool {
	switch fx.(type) {
	case PersistLog, PersistMedications, PersistContact, PersistProfile, MirrorSnapshot:
		return true
	}
	return false
}

// effectQueue unbounded FIFO drained by one worker
type effectQueue struct {
	mu    sync.Mutex
	items []Effect
	wake  chan struct{}
}

func newEffectQueue() *effectQueue {
	return &effectQueue{wake: make(chan struct{}, 1)}
}

func (q *effectQueue) push(effects ...Effect) {
	if len(effects) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, effects...)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *effectQueue) drain() []Effect {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
