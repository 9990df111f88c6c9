package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"vitalguard/internal/models"
	"vitalguard/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeBroker in-memory Publisher and Subscriber
type fakeBroker struct {
	mu         sync.Mutex
	messages   []published
	handlers   map[string]MessageHandler
	publishErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, qos byte, _ bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.messages = append(b.messages, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.handlers, t)
	}
	return nil
}

func (b *fakeBroker) deliver(topic string, payload []byte) error {
	b.mu.Lock()
	h, ok := b.handlers[topic]
	b.mu.Unlock()
	if !ok {
		return errors.New("no subscriber")
	}
	return h(topic, payload)
}

type recordingIngester struct {
	samples []models.VitalsSample
	err     error
}

func (r *recordingIngester) IngestSample(s models.VitalsSample) error {
	if r.err != nil {
		return r.err
	}
	r.samples = append(r.samples, s)
	return nil
}

func TestTopics(t *testing.T) {
	topics := NewTopics("", "PT-1")
	assert.Equal(t, "vitalguard/PT-1/vitals", topics.Vitals())
	assert.Equal(t, "vitalguard/PT-1/speech", topics.Speech())
	assert.Equal(t, "vitalguard/PT-1/tone", topics.Tone())
	assert.Equal(t, "vitalguard/caregivers/c1/alerts", topics.CaregiverAlerts("c1"))
}

func TestVitalsSubscriber_IngestsSamples(t *testing.T) {
	broker := newFakeBroker()
	ingester := &recordingIngester{}
	sub := NewVitalsSubscriber(broker, NewTopics("", "PT-1"), 1, ingester, zap.NewNop())
	require.NoError(t, sub.Start())

	err := broker.deliver("vitalguard/PT-1/vitals",
		[]byte(`{"heart_rate":88,"systolic":125,"diastolic":80,"temperature":98.9,"timestamp":1760770800000}`))
	require.NoError(t, err)

	require.Len(t, ingester.samples, 1)
	s := ingester.samples[0]
	assert.Equal(t, 88.0, s.HeartRate)
	assert.Equal(t, 98.9, s.Temperature)
	assert.Equal(t, int64(1760770800000), s.Timestamp.UnixMilli())

	require.NoError(t, broker.deliver("vitalguard/PT-1/vitals", []byte(`{"heart_rate":70}`)))
	require.Len(t, ingester.samples, 2)
	assert.True(t, ingester.samples[1].Timestamp.IsZero())
}

func TestVitalsSubscriber_RejectsBadMessages(t *testing.T) {
	broker := newFakeBroker()
	ingester := &recordingIngester{}
	sub := NewVitalsSubscriber(broker, NewTopics("", "PT-1"), 1, ingester, zap.NewNop())
	require.NoError(t, sub.Start())

	assert.Error(t, broker.deliver("vitalguard/PT-1/vitals", []byte(`not json`)))
	assert.ErrorIs(t, broker.deliver("vitalguard/PT-1/vitals", []byte(`{}`)), errEmptySample)
	assert.Empty(t, ingester.samples)

	ingester.err = errors.New("source rejects samples")
	assert.Error(t, broker.deliver("vitalguard/PT-1/vitals", []byte(`{"heart_rate":70}`)))
}

func TestVitalsSubscriber_Stop(t *testing.T) {
	broker := newFakeBroker()
	sub := NewVitalsSubscriber(broker, NewTopics("", "PT-1"), 1, &recordingIngester{}, zap.NewNop())
	require.NoError(t, sub.Start())
	require.NoError(t, sub.Stop())

	assert.Error(t, broker.deliver("vitalguard/PT-1/vitals", []byte(`{"heart_rate":70}`)))
}

func TestDeviceSpeaker(t *testing.T) {
	broker := newFakeBroker()
	speaker := NewDeviceSpeaker(broker, NewTopics("", "PT-1"), 1, zap.NewNop())

	speaker.Cancel()
	require.NoError(t, speaker.Speak("Help is on the way."))

	require.Len(t, broker.messages, 2)
	assert.Equal(t, "vitalguard/PT-1/speech", broker.messages[1].topic)

	var cmd speechCommand
	require.NoError(t, json.Unmarshal(broker.messages[0].payload, &cmd))
	assert.Equal(t, "cancel", cmd.Action)
	require.NoError(t, json.Unmarshal(broker.messages[1].payload, &cmd))
	assert.Equal(t, "speak", cmd.Action)
	assert.Equal(t, "Help is on the way.", cmd.Text)
}

func TestDeviceTone(t *testing.T) {
	broker := newFakeBroker()
	tone := NewDeviceTone(broker, NewTopics("", "PT-1"))

	require.NoError(t, tone.Play(1000, 150*time.Millisecond))

	require.Len(t, broker.messages, 1)
	assert.Equal(t, byte(0), broker.messages[0].qos)
	var cmd toneCommand
	require.NoError(t, json.Unmarshal(broker.messages[0].payload, &cmd))
	assert.Equal(t, 1000.0, cmd.Frequency)
	assert.Equal(t, int64(150), cmd.DurationMS)
}

func TestSender(t *testing.T) {
	broker := newFakeBroker()
	sender := NewSender(broker, NewTopics("", "PT-1"), 1, zap.NewNop())

	assert.Equal(t, "mqtt", sender.Name())
	require.NoError(t, sender.Ready())

	contact := models.EmergencyContact{ID: "c1", Name: "Dr. Michael Chen", Phone: "555-0123"}
	require.NoError(t, sender.Send(context.Background(), contact, "SOS"))

	require.Len(t, broker.messages, 1)
	assert.Equal(t, "vitalguard/caregivers/c1/alerts", broker.messages[0].topic)
	var alert caregiverAlert
	require.NoError(t, json.Unmarshal(broker.messages[0].payload, &alert))
	assert.Equal(t, "PT-1", alert.PatientID)
	assert.Equal(t, "SOS", alert.Message)
}

func TestSender_NotReadyWithoutBroker(t *testing.T) {
	sender := NewSender(nil, NewTopics("", "PT-1"), 1, zap.NewNop())
	assert.ErrorIs(t, sender.Ready(), notify.ErrNotConfigured)
}

func TestSender_PublishFailureAndCancelledContext(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = errors.New("not connected")
	sender := NewSender(broker, NewTopics("", "PT-1"), 1, zap.NewNop())

	assert.Error(t, sender.Send(context.Background(), models.EmergencyContact{ID: "c1"}, "SOS"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, models.EmergencyContact{ID: "c1"}, "SOS"), context.Canceled)
}

func TestSender_ThroughCaregiverChannel(t *testing.T) {
	broker := newFakeBroker()
	toasts := notify.NewToastQueue(10)
	channel := notify.NewCaregiverChannel(NewSender(broker, NewTopics("", "PT-1"), 1, zap.NewNop()), toasts, zap.NewNop())

	contacts := []models.EmergencyContact{{ID: "c1", Name: "A"}, {ID: "c2", Name: "B"}}
	report := channel.Deliver(context.Background(), contacts, "SOS")

	assert.Equal(t, notify.OutcomeDelivered, report.Outcome)
	assert.Equal(t, 2, report.Delivered)
	assert.Len(t, broker.messages, 2)
}
