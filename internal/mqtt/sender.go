package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalguard/internal/models"
	"vitalguard/internal/notify"

	"go.uber.org/zap"
)

type caregiverAlert struct {
	PatientID string `json:"patient_id"`
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Message   string `json:"message"`
	SentAt    int64  `json:"sent_at"`
}

// Sender caregiver channel over the broker; each contact has its own topic
type Sender struct {
	pub    Publisher
	topics Topics
	qos    byte
	logger *zap.Logger
}

// NewSender creates the sender; pub may be nil when no broker is connected
func NewSender(pub Publisher, topics Topics, qos byte, logger *zap.Logger) *Sender {
	return &Sender{
		pub:    pub,
		topics: topics,
		qos:    qos,
		logger: logger,
	}
}

// Name channel name
func (s *Sender) Name() string {
	return "mqtt"
}

// Ready requires a broker connection
func (s *Sender) Ready() error {
	if s.pub == nil {
		return fmt.Errorf("%w: no MQTT broker connected", notify.ErrNotConfigured)
	}
	return nil
}

// Send publishes one alert to the contact's topic
func (s *Sender) Send(ctx context.Context, contact models.EmergencyContact, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(caregiverAlert{
		PatientID: s.topics.PatientID,
		ContactID: contact.ID,
		Name:      contact.Name,
		Phone:     contact.Phone,
		Message:   message,
		SentAt:    time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal caregiver alert: %w", err)
	}

	topic := s.topics.CaregiverAlerts(contact.ID)
	if err := s.pub.Publish(topic, s.qos, false, payload); err != nil {
		return err
	}
	s.logger.Debug("Caregiver alert published",
		zap.String("topic", topic),
		zap.String("contact_id", contact.ID),
	)
	return nil
}
