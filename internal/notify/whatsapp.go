package notify

import (
	"context"
	"fmt"
	"time"

	"vitalguard/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// whatsAppRequest gateway payload
type whatsAppRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// WhatsAppSender HTTP gateway caregiver channel
type WhatsAppSender struct {
	httpClient *resty.Client
	baseURL    string
	logger     *zap.Logger
}

// NewWhatsAppSender creates a sender for the gateway at baseURL
func NewWhatsAppSender(baseURL string, timeout time.Duration, logger *zap.Logger) *WhatsAppSender {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WhatsAppSender{
		httpClient: client,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Name sender label
func (s *WhatsAppSender) Name() string {
	return "whatsapp"
}

// Ready fails without a gateway URL
func (s *WhatsAppSender) Ready() error {
	if s.baseURL == "" {
		return fmt.Errorf("%w: whatsapp gateway url missing", ErrNotConfigured)
	}
	return nil
}

// Send posts one alert to the contact's phone number
func (s *WhatsAppSender) Send(ctx context.Context, contact models.EmergencyContact, message string) error {
	if err := s.Ready(); err != nil {
		return err
	}
	if contact.Phone == "" {
		return fmt.Errorf("%w: no phone number for contact %s", ErrNotConfigured, contact.ID)
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(whatsAppRequest{PhoneNumber: contact.Phone, Message: message}).
		Post("/api/send-alert")
	if err != nil {
		return fmt.Errorf("failed to call whatsapp gateway: %w", transportError(err))
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp gateway error (status: %d)", resp.StatusCode())
	}

	s.logger.Debug("WhatsApp alert sent",
		zap.String("contact_id", contact.ID),
	)
	return nil
}
