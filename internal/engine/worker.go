package engine

import (
	"context"
	"time"

	"vitalguard/internal/models"
	"vitalguard/internal/notify"

	"go.uber.org/zap"
)

// runWorker drains q until Close, then flushes what is left
func (e *Engine) runWorker(q *effectQueue) {
	defer e.workers.Done()

	for {
		select {
		case <-q.wake:
			e.executeAll(q.drain())
		case <-e.done:
			// effects may queue further effects; flush until quiet
			for items := q.drain(); len(items) > 0; items = q.drain() {
				e.executeAll(items)
			}
			return
		}
	}
}

func (e *Engine) executeAll(effects []Effect) {
	for _, fx := range effects {
		e.safely("effect", func() { e.execute(fx) })
	}
}

func (e *Engine) execute(fx Effect) {
	switch fx := fx.(type) {
	case Speak:
		e.deps.Notifier.Notify(notify.ChannelSpeech, notify.Payload{Text: fx.Text})

	case Tone:
		e.deps.Notifier.Notify(notify.ChannelTone, notify.Payload{Frequency: fx.Frequency, Duration: fx.Duration})

	case Toast:
		e.deps.Notifier.Notify(notify.ChannelToast, notify.Payload{Tag: fx.Tag, Title: fx.Title, Text: fx.Message})

	case NotifyCaregivers:
		// read at execution time, not when the transition was committed
		snapshot := e.Snapshot()
		e.deps.Notifier.Notify(notify.ChannelCaregiver, notify.Payload{
			Text:     fx.Compose(snapshot),
			Contacts: snapshot.Contacts,
			OnReport: fx.OnReport,
		})

	case RequestInsight:
		e.scheduleInsight(fx.Delay)

	case PersistLog:
		e.persistLog(fx.Entries)

	case PersistMedications:
		e.persist("medications", func(ctx context.Context, p Persister, patientID string) error {
			return p.SaveMedications(ctx, patientID, fx.Medications)
		})

	case PersistContact:
		e.persist("contact", func(ctx context.Context, p Persister, patientID string) error {
			if fx.Delete {
				return p.DeleteContact(ctx, patientID, fx.Contact.ID)
			}
			return p.SaveContact(ctx, patientID, fx.Contact)
		})

	case PersistProfile:
		e.persist("profile", func(ctx context.Context, p Persister, _ string) error {
			return p.SaveProfile(ctx, fx.Profile)
		})

	case MirrorSnapshot:
		if e.deps.Mirror == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.IOTimeout)
		defer cancel()
		if err := e.deps.Mirror.StoreSnapshot(ctx, e.Snapshot()); err != nil {
			e.logger.Warn("Failed to mirror snapshot",
				zap.Error(err),
			)
		}

	default:
		e.logger.Warn("Unknown effect dropped")
	}
}

func (e *Engine) patientID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.profile.ID
}

// persist runs one write-back call; failure keeps the in-memory state and
// surfaces a toast
func (e *Engine) persist(what string, fn func(ctx context.Context, p Persister, patientID string) error) {
	if e.deps.Persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.IOTimeout)
	defer cancel()

	if err := fn(ctx, e.deps.Persister, e.patientID()); err != nil {
		e.logger.Error("Failed to persist",
			zap.String("what", what),
			zap.Error(err),
		)
		e.emit(Toast{
			Tag:     models.NotificationSystem,
			Title:   "Sync Failed",
			Message: "Changes are kept on this device but could not be saved to the profile store.",
		})
	}
}

func (e *Engine) persistLog(entries []models.EmergencyLogEntry) {
	if len(entries) == 0 {
		return
	}
	e.persist("emergency_log", func(ctx context.Context, p Persister, patientID string) error {
		return p.SaveLogEntries(ctx, patientID, entries)
	})

	if e.deps.Mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.IOTimeout)
	defer cancel()
	if err := e.deps.Mirror.AppendLogEntries(ctx, e.patientID(), entries); err != nil {
		e.logger.Warn("Failed to mirror emergency log",
			zap.Int("entry_count", len(entries)),
			zap.Error(err),
		)
	}
}

// scheduleInsight refreshes the insight after delay without blocking the
// worker; it is abandoned on Close
func (e *Engine) scheduleInsight(delay time.Duration) {
	if delay <= 0 {
		e.RefreshInsight()
		return
	}
	if !e.beginAsync() {
		return
	}
	go func() {
		defer e.async.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			e.RefreshInsight()
		case <-e.done:
		}
	}()
}

// RefreshInsight requests a new insight from the provider for the current
// snapshot. On failure the last known insight stays in place.
func (e *Engine) RefreshInsight() {
	if e.deps.Insight == nil {
		return
	}
	e.goAsync("insight", func(ctx context.Context) {
		snapshot := e.Snapshot()
		in, err := e.deps.Insight.Generate(ctx, snapshot)
		if err != nil {
			e.logger.Warn("Insight refresh failed",
				zap.String("status", string(snapshot.Status)),
				zap.Error(err),
			)
			e.emit(Toast{
				Tag:     models.NotificationSystem,
				Title:   "Insight Unavailable",
				Message: "Showing the last known health insight.",
			})
			return
		}
		e.update(func(s *state) []Effect {
			s.insight = &in
			return []Effect{MirrorSnapshot{}}
		})
	})
}
