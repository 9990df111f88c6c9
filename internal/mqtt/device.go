package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type speechCommand struct {
	Action string `json:"action"` // speak, cancel
	Text   string `json:"text,omitempty"`
}

type toneCommand struct {
	Frequency  float64 `json:"frequency"`
	DurationMS int64   `json:"duration_ms"`
}

// DeviceSpeaker voices speech on the bedside device
type DeviceSpeaker struct {
	pub    Publisher
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewDeviceSpeaker creates a speaker publishing to the patient's speech topic
func NewDeviceSpeaker(pub Publisher, topics Topics, qos byte, logger *zap.Logger) *DeviceSpeaker {
	return &DeviceSpeaker{
		pub:    pub,
		topic:  topics.Speech(),
		qos:    qos,
		logger: logger,
	}
}

// Cancel stops the utterance in progress
func (s *DeviceSpeaker) Cancel() {
	if err := s.publish(speechCommand{Action: "cancel"}); err != nil {
		s.logger.Debug("Failed to cancel device speech",
			zap.Error(err),
		)
	}
}

// Speak starts a new utterance
func (s *DeviceSpeaker) Speak(text string) error {
	return s.publish(speechCommand{Action: "speak", Text: text})
}

func (s *DeviceSpeaker) publish(cmd speechCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal speech command: %w", err)
	}
	return s.pub.Publish(s.topic, s.qos, false, payload)
}

// DeviceTone plays tones on the bedside device
type DeviceTone struct {
	pub   Publisher
	topic string
}

// NewDeviceTone creates a tone synth publishing to the patient's tone topic.
// Tones are fire-and-forget at QoS 0.
func NewDeviceTone(pub Publisher, topics Topics) *DeviceTone {
	return &DeviceTone{
		pub:   pub,
		topic: topics.Tone(),
	}
}

// Play requests one tone
func (t *DeviceTone) Play(frequency float64, duration time.Duration) error {
	payload, err := json.Marshal(toneCommand{Frequency: frequency, DurationMS: duration.Milliseconds()})
	if err != nil {
		return fmt.Errorf("failed to marshal tone command: %w", err)
	}
	return t.pub.Publish(t.topic, 0, false, payload)
}
