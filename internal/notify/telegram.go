package notify

import (
	"context"
	"fmt"
	"time"

	"vitalguard/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// telegramRequest sendMessage body
type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// telegramResponse Bot API envelope
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramSender Telegram Bot API caregiver channel
type TelegramSender struct {
	httpClient *resty.Client
	token      string
	chatID     string // fallback when a contact has no chat id of its own
	logger     *zap.Logger
}

// NewTelegramSender creates a sender; token and chatID may be empty, in
// which case Ready reports ErrNotConfigured
func NewTelegramSender(apiURL, token, chatID string, timeout time.Duration, logger *zap.Logger) *TelegramSender {
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &TelegramSender{
		httpClient: client,
		token:      token,
		chatID:     chatID,
		logger:     logger,
	}
}

// Name sender label
func (s *TelegramSender) Name() string {
	return "telegram"
}

// Ready fails without a bot token
func (s *TelegramSender) Ready() error {
	if s.token == "" {
		return fmt.Errorf("%w: telegram bot token missing", ErrNotConfigured)
	}
	return nil
}

// Send posts message to the contact's chat, or the default chat
func (s *TelegramSender) Send(ctx context.Context, contact models.EmergencyContact, message string) error {
	if err := s.Ready(); err != nil {
		return err
	}
	chatID := contact.TelegramChatID
	if chatID == "" {
		chatID = s.chatID
	}
	if chatID == "" {
		return fmt.Errorf("%w: no telegram chat id for contact %s", ErrNotConfigured, contact.ID)
	}

	var response telegramResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(telegramRequest{ChatID: chatID, Text: message, ParseMode: "Markdown"}).
		SetResult(&response).
		SetError(&response).
		Post("/bot" + s.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %w", transportError(err))
	}
	if resp.IsError() || !response.OK {
		return fmt.Errorf("telegram api error: %s (status: %d)", response.Description, resp.StatusCode())
	}

	s.logger.Debug("Telegram message sent",
		zap.String("contact_id", contact.ID),
	)
	return nil
}
