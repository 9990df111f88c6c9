package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vitalguard/internal/models"

	"go.uber.org/zap"
)

var errEmptySample = errors.New("vitals message carries no readings")

// Ingester accepts externally measured samples
type Ingester interface {
	IngestSample(sample models.VitalsSample) error
}

// vitalsMessage wearable payload; timestamp is unix milliseconds and optional
type vitalsMessage struct {
	HeartRate   float64 `json:"heart_rate"`
	Systolic    float64 `json:"systolic"`
	Diastolic   float64 `json:"diastolic"`
	Temperature float64 `json:"temperature"`
	Timestamp   int64   `json:"timestamp,omitempty"`
}

// VitalsSubscriber feeds wearable samples from the broker into the engine
type VitalsSubscriber struct {
	sub      Subscriber
	topics   Topics
	qos      byte
	ingester Ingester
	logger   *zap.Logger
}

// NewVitalsSubscriber creates the subscriber
func NewVitalsSubscriber(sub Subscriber, topics Topics, qos byte, ingester Ingester, logger *zap.Logger) *VitalsSubscriber {
	return &VitalsSubscriber{
		sub:      sub,
		topics:   topics,
		qos:      qos,
		ingester: ingester,
		logger:   logger,
	}
}

// Start subscribes to the patient's vitals topic
func (v *VitalsSubscriber) Start() error {
	if err := v.sub.Subscribe(v.topics.Vitals(), v.qos, v.handle); err != nil {
		return err
	}
	v.logger.Info("Subscribed to vitals feed",
		zap.String("topic", v.topics.Vitals()),
	)
	return nil
}

// Stop removes the subscription
func (v *VitalsSubscriber) Stop() error {
	return v.sub.Unsubscribe(v.topics.Vitals())
}

func (v *VitalsSubscriber) handle(topic string, payload []byte) error {
	var msg vitalsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to decode vitals message: %w", err)
	}
	sample := models.VitalsSample{
		HeartRate:   msg.HeartRate,
		Systolic:    msg.Systolic,
		Diastolic:   msg.Diastolic,
		Temperature: msg.Temperature,
	}
	if sample.IsZero() {
		return errEmptySample
	}
	if msg.Timestamp > 0 {
		sample.Timestamp = time.UnixMilli(msg.Timestamp)
	}

	if err := v.ingester.IngestSample(sample); err != nil {
		return fmt.Errorf("failed to ingest sample: %w", err)
	}
	v.logger.Debug("Vitals sample ingested",
		zap.String("topic", topic),
		zap.Float64("heart_rate", sample.HeartRate),
	)
	return nil
}
