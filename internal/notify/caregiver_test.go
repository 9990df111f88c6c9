package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vitalguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testContacts = []models.EmergencyContact{
	{ID: "c1", Name: "Dr. Michael Chen", Phone: "555-0123", TelegramChatID: "100", IsPrimary: true},
	{ID: "c2", Name: "Sarah Thompson", Phone: "555-0199"},
}

func TestCaregiverChannel_NoContacts(t *testing.T) {
	toasts := NewToastQueue(10)
	sender := &stubSender{}
	c := NewCaregiverChannel(sender, toasts, zap.NewNop())

	report := c.Deliver(context.Background(), nil, "alert")

	assert.Equal(t, OutcomeNoContacts, report.Outcome)
	assert.Empty(t, sender.sent)
	require.Equal(t, 1, toasts.Len())
	assert.Equal(t, "No Contacts Configured", toasts.List()[0].Title)
}

func TestCaregiverChannel_NotConfigured(t *testing.T) {
	toasts := NewToastQueue(10)
	sender := &stubSender{ready: ErrNotConfigured}
	c := NewCaregiverChannel(sender, toasts, zap.NewNop())

	report := c.Deliver(context.Background(), testContacts, "alert")

	assert.Equal(t, OutcomeNotConfigured, report.Outcome)
	assert.Empty(t, sender.sent)
	assert.Equal(t, "Caregiver Channel Not Configured", toasts.List()[0].Title)

	nilSender := NewCaregiverChannel(nil, toasts, zap.NewNop())
	assert.Equal(t, OutcomeNotConfigured, nilSender.Deliver(context.Background(), testContacts, "alert").Outcome)
}

func TestCaregiverChannel_PartialFailure(t *testing.T) {
	toasts := NewToastQueue(10)
	sender := &stubSender{fail: map[string]error{"c2": errors.New("unreachable")}}
	c := NewCaregiverChannel(sender, toasts, zap.NewNop())

	report := c.Deliver(context.Background(), testContacts, "alert")

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, "1 of 2 delivered", report.Summary())
	assert.Len(t, report.Failures, 1)
	assert.ElementsMatch(t, []string{"c1", "c2"}, sender.sent)
	assert.Contains(t, toasts.List()[0].Message, "1 of 2 delivered")
}

func TestCaregiverChannel_AllDelivered(t *testing.T) {
	toasts := NewToastQueue(10)
	c := NewCaregiverChannel(&stubSender{}, toasts, zap.NewNop())

	report := c.Deliver(context.Background(), testContacts, "alert")

	assert.Equal(t, OutcomeDelivered, report.Outcome)
	assert.Equal(t, "2 of 2 delivered", report.Summary())
	assert.Equal(t, models.NotificationCaregiver, toasts.List()[0].Channel)
}

func TestTelegramSender_Send(t *testing.T) {
	var mu sync.Mutex
	var chats []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		var body telegramRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Markdown", body.ParseMode)
		assert.Equal(t, "hello *world*", body.Text)
		mu.Lock()
		chats = append(chats, body.ChatID)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	s := NewTelegramSender(server.URL, "secret", "999", time.Second, zap.NewNop())
	require.NoError(t, s.Ready())

	require.NoError(t, s.Send(context.Background(), testContacts[0], "hello *world*"))
	require.NoError(t, s.Send(context.Background(), testContacts[1], "hello *world*"))
	assert.Equal(t, []string{"100", "999"}, chats)
}

func TestTelegramSender_TransportErrorHidesToken(t *testing.T) {
	s := NewTelegramSender("http://127.0.0.1:1", "SECRET-BOT-TOKEN", "42", time.Second, zap.NewNop())

	err := s.Send(context.Background(), testContacts[1], "patient Margaret Doe critical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call telegram api")
	assert.NotContains(t, err.Error(), "SECRET-BOT-TOKEN")
	assert.NotContains(t, err.Error(), "Margaret")
	assert.NotContains(t, err.Error(), "127.0.0.1:1/bot")
}

func TestCaregiverChannel_FailureLogOmitsToken(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	sender := NewTelegramSender("http://127.0.0.1:1", "SECRET-BOT-TOKEN", "42", time.Second, logger)
	c := NewCaregiverChannel(sender, NewToastQueue(10), logger)

	report := c.Deliver(context.Background(), testContacts[1:], "patient Margaret Doe critical")

	assert.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, 1, logs.FilterMessage("Caregiver delivery failed").Len())
	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			s, _ := v.(string)
			assert.NotContains(t, s, "SECRET-BOT-TOKEN")
		}
	}
}

func TestTelegramSender_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	s := NewTelegramSender(server.URL, "bad", "1", time.Second, zap.NewNop())
	err := s.Send(context.Background(), testContacts[0], "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTelegramSender_NotConfigured(t *testing.T) {
	s := NewTelegramSender("http://127.0.0.1:1", "", "", time.Second, zap.NewNop())
	assert.ErrorIs(t, s.Ready(), ErrNotConfigured)

	noChat := NewTelegramSender("http://127.0.0.1:1", "token", "", time.Second, zap.NewNop())
	assert.ErrorIs(t, noChat.Send(context.Background(), testContacts[1], "hi"), ErrNotConfigured)
}

func TestWhatsAppSender_Send(t *testing.T) {
	var got whatsAppRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/send-alert", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewWhatsAppSender(server.URL, time.Second, zap.NewNop())
	require.NoError(t, s.Send(context.Background(), testContacts[1], "alert"))
	assert.Equal(t, "555-0199", got.PhoneNumber)
	assert.Equal(t, "alert", got.Message)
}

func TestWhatsAppSender_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewWhatsAppSender(server.URL, time.Second, zap.NewNop())
	assert.Error(t, s.Send(context.Background(), testContacts[0], "alert"))
	assert.ErrorIs(t, NewWhatsAppSender("", time.Second, zap.NewNop()).Ready(), ErrNotConfigured)
}
