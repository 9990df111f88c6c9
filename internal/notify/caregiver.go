package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

// ErrNotConfigured the channel lacks credentials or an endpoint
var ErrNotConfigured = errors.New("caregiver channel not configured")

// transportError drops the request URL from a client error; the URL can
// carry credentials and it ends up in logs
func transportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// Sender delivers one message to one contact
type Sender interface {
	Name() string
	// Ready reports configuration absence before any I/O is attempted
	Ready() error
	Send(ctx context.Context, contact models.EmergencyContact, message string) error
}

// Outcome caregiver delivery result class
type Outcome string

const (
	OutcomeDelivered     Outcome = "delivered"
	OutcomePartial       Outcome = "partial"
	OutcomeFailed        Outcome = "failed"
	OutcomeNoContacts    Outcome = "no_contacts"
	OutcomeNotConfigured Outcome = "not_configured"
)

// DeliveryReport per-dispatch summary
type DeliveryReport struct {
	Outcome   Outcome
	Total     int
	Delivered int
	Failures  map[string]error // keyed by contact id
}

// Summary "N of M delivered"
func (r DeliveryReport) Summary() string {
	return fmt.Sprintf("%d of %d delivered", r.Delivered, r.Total)
}

// CaregiverChannel per-contact fan-out to the configured sender
type CaregiverChannel struct {
	sender Sender
	toasts *ToastQueue
	logger *zap.Logger
}

// NewCaregiverChannel creates the channel; sender may be nil
func NewCaregiverChannel(sender Sender, toasts *ToastQueue, logger *zap.Logger) *CaregiverChannel {
	return &CaregiverChannel{
		sender: sender,
		toasts: toasts,
		logger: logger,
	}
}

// Deliver attempts every contact independently and surfaces the outcome
// as a toast. It never returns an error.
func (c *CaregiverChannel) Deliver(ctx context.Context, contacts []models.EmergencyContact, message string) DeliveryReport {
	report := DeliveryReport{Total: len(contacts)}

	// 1. configuration checks, before any I/O
	if len(contacts) == 0 {
		report.Outcome = OutcomeNoContacts
		c.toasts.Push(models.NotificationSystem, "No Contacts Configured",
			"Add an emergency contact in settings so caregivers can be alerted.")
		c.logger.Warn("Caregiver dispatch skipped: no contacts configured")
		return report
	}
	if c.sender == nil {
		return c.notConfigured(report, ErrNotConfigured)
	}
	if err := c.sender.Ready(); err != nil {
		return c.notConfigured(report, err)
	}

	// 2. fan out, one attempt per contact
	errs := make([]error, len(contacts))
	var wg sync.WaitGroup
	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact models.EmergencyContact) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("sender panicked: %v", r)
				}
			}()
			errs[i] = c.sender.Send(ctx, contact, message)
		}(i, contact)
	}
	wg.Wait()

	// 3. tally
	for i, err := range errs {
		if err == nil {
			report.Delivered++
			caregiverDeliveriesTotal.WithLabelValues(c.sender.Name(), "success").Inc()
			continue
		}
		if report.Failures == nil {
			report.Failures = make(map[string]error)
		}
		report.Failures[contacts[i].ID] = err
		caregiverDeliveriesTotal.WithLabelValues(c.sender.Name(), "failure").Inc()
		c.logger.Error("Caregiver delivery failed",
			zap.String("sender", c.sender.Name()),
			zap.String("contact_id", contacts[i].ID),
			zap.Error(err),
		)
	}

	switch {
	case report.Delivered == 0:
		report.Outcome = OutcomeFailed
		c.toasts.Push(models.NotificationSystem, "Delivery Failed",
			fmt.Sprintf("Could not reach any caregiver (%s). Check the %s settings.", report.Summary(), c.sender.Name()))
	case report.Delivered < report.Total:
		report.Outcome = OutcomePartial
		c.toasts.Push(models.NotificationCaregiver, "Caregivers Partially Notified",
			fmt.Sprintf("Alert %s via %s.", report.Summary(), c.sender.Name()))
	default:
		report.Outcome = OutcomeDelivered
		c.toasts.Push(models.NotificationCaregiver, "Caregivers Notified",
			fmt.Sprintf("Alert %s via %s.", report.Summary(), c.sender.Name()))
	}

	c.logger.Info("Caregiver dispatch finished",
		zap.String("sender", c.sender.Name()),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("delivered", report.Delivered),
		zap.Int("total", report.Total),
	)
	return report
}

func (c *CaregiverChannel) notConfigured(report DeliveryReport, err error) DeliveryReport {
	report.Outcome = OutcomeNotConfigured
	c.toasts.Push(models.NotificationSystem, "Caregiver Channel Not Configured",
		"Set up the caregiver messaging channel in settings to alert your contacts.")
	c.logger.Warn("Caregiver dispatch skipped",
		zap.Error(err),
	)
	return report
}
