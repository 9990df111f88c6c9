package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vitalguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSpeaker struct {
	mu      sync.Mutex
	events  []string
	speakFn func(string) error
}

func (s *recordingSpeaker) Cancel() {
	s.mu.Lock()
	s.events = append(s.events, "cancel")
	s.mu.Unlock()
}

func (s *recordingSpeaker) Speak(text string) error {
	s.mu.Lock()
	s.events = append(s.events, "speak:"+text)
	s.mu.Unlock()
	if s.speakFn != nil {
		return s.speakFn(text)
	}
	return nil
}

type countingSynth struct {
	mu    sync.Mutex
	tones []float64
}

func (s *countingSynth) Play(frequency float64, _ time.Duration) error {
	s.mu.Lock()
	s.tones = append(s.tones, frequency)
	s.mu.Unlock()
	return nil
}

// stubSender per-contact scripted sender
type stubSender struct {
	ready error
	fail  map[string]error
	block chan struct{}

	mu   sync.Mutex
	sent []string
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) Ready() error { return s.ready }

func (s *stubSender) Send(ctx context.Context, contact models.EmergencyContact, message string) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.sent = append(s.sent, contact.ID)
	s.mu.Unlock()
	if err, ok := s.fail[contact.ID]; ok {
		return err
	}
	return nil
}

func newTestDispatcher(sender Sender, speaker Speaker, synth ToneSynth) (*Dispatcher, *ToastQueue) {
	logger := zap.NewNop()
	toasts := NewToastQueue(10)
	var tone *ToneChannel
	if synth != nil {
		tone = NewToneChannel(func() (ToneSynth, error) { return synth, nil }, logger)
	}
	d := NewDispatcher(speaker, tone, toasts, NewCaregiverChannel(sender, toasts, logger), 200*time.Millisecond, logger)
	return d, toasts
}

func TestDispatcher_SpeechCancelsBeforeSpeaking(t *testing.T) {
	speaker := &recordingSpeaker{}
	d, _ := newTestDispatcher(nil, speaker, nil)

	d.Notify(ChannelSpeech, Payload{Text: "first"})
	d.Notify(ChannelSpeech, Payload{Text: "second"})

	assert.Equal(t, []string{"cancel", "speak:first", "cancel", "speak:second"}, speaker.events)
}

func TestDispatcher_SpeechFailureIsSilent(t *testing.T) {
	speaker := &recordingSpeaker{speakFn: func(string) error { return errors.New("no voices") }}
	d, toasts := newTestDispatcher(nil, speaker, nil)

	assert.NotPanics(t, func() { d.Notify(ChannelSpeech, Payload{Text: "hello"}) })
	assert.Equal(t, 0, toasts.Len())
}

func TestDispatcher_MissingAudioIsSkipped(t *testing.T) {
	d, _ := newTestDispatcher(nil, nil, nil)
	assert.NotPanics(t, func() {
		d.Notify(ChannelSpeech, Payload{Text: "hello"})
		d.Notify(ChannelTone, Payload{Frequency: 800, Duration: 150 * time.Millisecond})
	})
}

func TestToneChannel_BuildsSynthOnce(t *testing.T) {
	builds := 0
	synth := &countingSynth{}
	tone := NewToneChannel(func() (ToneSynth, error) {
		builds++
		return synth, nil
	}, zap.NewNop())

	tone.Play(800, time.Millisecond)
	tone.Play(900, time.Millisecond)

	assert.Equal(t, 1, builds)
	assert.Equal(t, []float64{800, 900}, synth.tones)
}

func TestToneChannel_FactoryErrorDisablesChannel(t *testing.T) {
	builds := 0
	tone := NewToneChannel(func() (ToneSynth, error) {
		builds++
		return nil, errors.New("no audio device")
	}, zap.NewNop())

	tone.Play(800, time.Millisecond)
	tone.Play(900, time.Millisecond)
	assert.Equal(t, 1, builds)
}

func TestDispatcher_ToastDefaultsToSystemTag(t *testing.T) {
	d, toasts := newTestDispatcher(nil, nil, nil)
	d.Notify(ChannelToast, Payload{Title: "FALL DETECTED", Text: "Hard impact detected. Alerting contacts."})

	items := toasts.List()
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationSystem, items[0].Channel)
	assert.Equal(t, "FALL DETECTED", items[0].Title)
}

func TestDispatcher_CaregiverDoesNotBlockCaller(t *testing.T) {
	sender := &stubSender{block: make(chan struct{})}
	d, _ := newTestDispatcher(sender, nil, nil)

	done := make(chan struct{})
	go func() {
		d.Notify(ChannelCaregiver, Payload{
			Text:     "alert",
			Contacts: []models.EmergencyContact{{ID: "c1"}},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on caregiver delivery")
	}
	close(sender.block)
	d.Wait()
}

func TestDispatcher_CaregiverTimeoutReportsFailure(t *testing.T) {
	sender := &stubSender{block: make(chan struct{})}
	defer close(sender.block)
	d, toasts := newTestDispatcher(sender, nil, nil)

	reports := make(chan DeliveryReport, 1)
	d.Notify(ChannelCaregiver, Payload{
		Text:     "alert",
		Contacts: []models.EmergencyContact{{ID: "c1"}},
		OnReport: func(r DeliveryReport) { reports <- r },
	})

	select {
	case r := <-reports:
		assert.Equal(t, OutcomeFailed, r.Outcome)
		assert.ErrorIs(t, r.Failures["c1"], context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery report after timeout")
	}
	assert.Equal(t, "Delivery Failed", toasts.List()[0].Title)
}
