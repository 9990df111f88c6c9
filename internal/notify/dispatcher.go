package notify

import (
	"context"
	"sync"
	"time"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// Channel notification fan-out target
type Channel string

const (
	ChannelSpeech    Channel = "speech"
	ChannelTone      Channel = "tone"
	ChannelToast     Channel = "toast"
	ChannelCaregiver Channel = "caregiver"
)

// Payload notification content; fields are read per channel
type Payload struct {
	Text      string                     // utterance, toast message or caregiver message
	Title     string                     // toast title
	Tag       models.NotificationChannel // toast tag
	Frequency float64                    // tone Hz
	Duration  time.Duration              // tone length
	Contacts  []models.EmergencyContact  // caregiver recipients
	OnReport  func(DeliveryReport)       // optional caregiver completion callback
}

// Notifier fire-and-forget fan-out
type Notifier interface {
	Notify(ch Channel, p Payload)
}

// Speaker speech synthesis backend
type Speaker interface {
	Cancel()
	Speak(text string) error
}

// Dispatcher routes notifications to speech, tone, toast and caregiver
// channels. Notify never blocks on external I/O and never returns an error.
type Dispatcher struct {
	speaker    Speaker
	speakMu    sync.Mutex
	tone       *ToneChannel
	toasts     *ToastQueue
	caregivers *CaregiverChannel
	timeout    time.Duration
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates a dispatcher. speaker and tone may be nil when the
// platform has no audio; those channels are then skipped silently.
func NewDispatcher(
	speaker Speaker,
	tone *ToneChannel,
	toasts *ToastQueue,
	caregivers *CaregiverChannel,
	timeout time.Duration,
	logger *zap.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		speaker:    speaker,
		tone:       tone,
		toasts:     toasts,
		caregivers: caregivers,
		timeout:    timeout,
		logger:     logger,
	}
}

// Toasts in-app notification queue
func (d *Dispatcher) Toasts() *ToastQueue {
	return d.toasts
}

// Notify dispatches p on ch
func (d *Dispatcher) Notify(ch Channel, p Payload) {
	notificationsTotal.WithLabelValues(string(ch)).Inc()

	switch ch {
	case ChannelSpeech:
		d.speak(p.Text)
	case ChannelTone:
		if d.tone != nil {
			d.tone.Play(p.Frequency, p.Duration)
		}
	case ChannelToast:
		tag := p.Tag
		if tag == "" {
			tag = models.NotificationSystem
		}
		d.toasts.Push(tag, p.Title, p.Text)
	case ChannelCaregiver:
		d.dispatchCaregivers(p)
	default:
		d.logger.Warn("Unknown notification channel",
			zap.String("channel", string(ch)),
		)
	}
}

// Wait blocks until in-flight caregiver deliveries finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// speak cancels any in-flight utterance first; the newest text wins
func (d *Dispatcher) speak(text string) {
	if d.speaker == nil || text == "" {
		return
	}
	d.speakMu.Lock()
	defer d.speakMu.Unlock()

	d.speaker.Cancel()
	if err := d.speaker.Speak(text); err != nil {
		d.logger.Debug("Speech unavailable",
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) dispatchCaregivers(p Payload) {
	contacts := make([]models.EmergencyContact, len(p.Contacts))
	copy(contacts, p.Contacts)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Caregiver dispatch panicked",
					zap.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		report := d.caregivers.Deliver(ctx, contacts, p.Text)
		if p.OnReport != nil {
			p.OnReport(report)
		}
	}()
}
