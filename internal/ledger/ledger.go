package ledger

import (
	"time"

	"vitalguard/internal/models"

	"github.com/google/uuid"
)

// Ledger append-only emergency log. Entries are stored oldest-first so
// appends stay O(1); readers get them newest-first.
type Ledger struct {
	entries []models.EmergencyLogEntry
}

// New creates a ledger seeded with entries given newest-first
func New(newestFirst ...models.EmergencyLogEntry) *Ledger {
	l := &Ledger{entries: make([]models.EmergencyLogEntry, 0, len(newestFirst))}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		l.entries = append(l.entries, newestFirst[i])
	}
	return l
}

// NewEntry builds an entry with a fresh id
func NewEntry(entryType, notes string, resolved bool, at time.Time) models.EmergencyLogEntry {
	return models.EmergencyLogEntry{
		ID:        uuid.New().String(),
		Timestamp: at,
		Type:      entryType,
		Resolved:  resolved,
		Notes:     notes,
	}
}

// Append adds an entry at the head
func (l *Ledger) Append(entry models.EmergencyLogEntry) {
	l.entries = append(l.entries, entry)
}

// Len number of entries
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries copy, newest first
func (l *Ledger) Entries() []models.EmergencyLogEntry {
	out := make([]models.EmergencyLogEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Unresolved copy of open entries, newest first
func (l *Ledger) Unresolved() []models.EmergencyLogEntry {
	var out []models.EmergencyLogEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if !l.entries[i].Resolved {
			out = append(out, l.entries[i])
		}
	}
	return out
}

// ResolveAll marks every unresolved entry resolved and appends the
// acknowledgement suffix. Already-resolved entries are untouched.
// Returns the entries that changed, newest first.
func (l *Ledger) ResolveAll() []models.EmergencyLogEntry {
	var changed []models.EmergencyLogEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Resolved {
			continue
		}
		l.entries[i].Resolved = true
		l.entries[i].Notes += models.AckSuffix
		changed = append(changed, l.entries[i])
	}
	return changed
}

// Resolve marks a single entry. ok is false when the id is unknown or the
// entry was already resolved.
func (l *Ledger) Resolve(id string) (models.EmergencyLogEntry, bool) {
	for i := range l.entries {
		if l.entries[i].ID != id {
			continue
		}
		if l.entries[i].Resolved {
			return l.entries[i], false
		}
		l.entries[i].Resolved = true
		l.entries[i].Notes += models.AckSuffix
		return l.entries[i], true
	}
	return models.EmergencyLogEntry{}, false
}
