package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitalguard/internal/cache"
	"vitalguard/internal/config"
	"vitalguard/internal/database"
	"vitalguard/internal/engine"
	"vitalguard/internal/geo"
	"vitalguard/internal/insight"
	"vitalguard/internal/models"
	"vitalguard/internal/mqtt"
	"vitalguard/internal/notify"
	"vitalguard/internal/repository"
	"vitalguard/internal/vitals"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	connectTimeout = 5 * time.Second
	logLoadLimit   = 100
)

// VitalGuardService engine plus its optional backends
type VitalGuardService struct {
	config *config.Config
	logger *zap.Logger

	// optional backends, nil when disabled or unreachable
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client

	dispatcher *notify.Dispatcher
	engine     *engine.Engine
	subscriber *mqtt.VitalsSubscriber
}

// NewVitalGuardService connects the configured backends and builds the
// engine. A backend that cannot be reached is logged and left out.
func NewVitalGuardService(cfg *config.Config, logger *zap.Logger) (*VitalGuardService, error) {
	s := &VitalGuardService{
		config: cfg,
		logger: logger,
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// 1. connect the optional backends
	if cfg.Backends.DatabaseEnabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Warn("Profile store unavailable, running on demo data",
				zap.String("host", cfg.Database.Host),
				zap.Error(err),
			)
		} else {
			s.db = db
		}
	}
	if cfg.Backends.RedisEnabled {
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, snapshot mirror disabled",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
		} else {
			s.redisClient = client
		}
	}
	if cfg.Backends.MQTTEnabled {
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT broker unavailable, device channels disabled",
				zap.String("broker", cfg.MQTT.Broker),
				zap.Error(err),
			)
		} else {
			s.mqttClient = client
		}
	}

	// 2. starting snapshot
	var persistence *repository.Persistence
	if s.db != nil {
		persistence = repository.NewPersistence(
			repository.NewProfileRepository(s.db, logger),
			repository.NewEmergencyLogRepository(s.db, logger),
			logger,
		)
	}
	initial := loadInitialState(ctx, persistence, cfg.Patient.ID, logger)

	// 3. notification fan-out
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix, cfg.Patient.ID)
	var pub mqtt.Publisher
	if s.mqttClient != nil {
		pub = s.mqttClient
	}

	toasts := notify.NewToastQueue(cfg.Notify.MaxToasts)
	var speaker notify.Speaker
	if cfg.Notify.SpeechEnabled && pub != nil {
		speaker = mqtt.NewDeviceSpeaker(pub, topics, cfg.MQTT.QoS, logger)
	}
	var tone *notify.ToneChannel
	if cfg.Notify.ToneEnabled {
		tone = notify.NewToneChannel(func() (notify.ToneSynth, error) {
			if pub == nil {
				return nil, fmt.Errorf("no tone device connected")
			}
			return mqtt.NewDeviceTone(pub, topics), nil
		}, logger)
	}
	caregivers := notify.NewCaregiverChannel(buildSender(cfg, pub, topics, logger), toasts, logger)
	s.dispatcher = notify.NewDispatcher(speaker, tone, toasts, caregivers, cfg.Notify.DispatchTimeout, logger)

	// 4. engine collaborators
	var source vitals.Source = vitals.NewGenerator(0)
	if cfg.Engine.VitalsSource == "mqtt" {
		source = vitals.NewStreamSource(source)
	}
	deps := engine.Deps{
		Notifier: s.dispatcher,
		Toasts:   toasts,
		Source:   source,
		Insight: insight.NewFallbackProvider(
			insight.NewHTTPProvider(cfg.Insight.APIURL, cfg.Insight.Timeout, logger),
			insight.NewSimulatedProvider(),
			logger,
		),
	}
	if cfg.Geo.APIURL != "" {
		deps.Geocoder = geo.NewNominatimGeocoder(cfg.Geo.APIURL, cfg.Geo.UserAgent, cfg.Geo.Timeout, logger)
	}
	if persistence != nil {
		deps.Persister = persistence
	}
	if s.redisClient != nil {
		deps.Mirror = cache.NewMirror(s.redisClient, cfg.Cache.KeyPrefix, time.Duration(cfg.Cache.SnapshotTTL)*time.Second, logger)
	}

	s.engine = engine.New(initial, engineOptions(cfg), deps, logger)

	// 5. wearable feed
	if cfg.Engine.VitalsSource == "mqtt" {
		if s.mqttClient != nil {
			s.subscriber = mqtt.NewVitalsSubscriber(s.mqttClient, topics, cfg.MQTT.QoS, s.engine, logger)
		} else {
			logger.Warn("VITALS_SOURCE=mqtt without a broker, using simulated vitals")
		}
	}

	return s, nil
}

// Engine the orchestration engine
func (s *VitalGuardService) Engine() *engine.Engine {
	return s.engine
}

// Start arms the engine timers and subscribes to the wearable feed
func (s *VitalGuardService) Start(ctx context.Context) error {
	s.logger.Info("Starting vitalguard service",
		zap.String("patient_id", s.config.Patient.ID),
		zap.Bool("database", s.db != nil),
		zap.Bool("redis", s.redisClient != nil),
		zap.Bool("mqtt", s.mqttClient != nil),
	)

	if s.subscriber != nil {
		if err := s.subscriber.Start(); err != nil {
			return fmt.Errorf("failed to start vitals subscriber: %w", err)
		}
	}
	s.engine.Start(ctx)
	return nil
}

// Stop stops the engine, drains pending notifications and closes backends
func (s *VitalGuardService) Stop() error {
	s.logger.Info("Stopping vitalguard service")

	if s.subscriber != nil {
		if err := s.subscriber.Stop(); err != nil {
			s.logger.Warn("Failed to unsubscribe vitals feed",
				zap.Error(err),
			)
		}
	}
	s.engine.Close()
	s.dispatcher.Wait()

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis",
				zap.Error(err),
			)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database",
				zap.Error(err),
			)
		}
	}
	return nil
}

// loadInitialState reads the patient from the profile store, else the
// demo snapshot
func loadInitialState(ctx context.Context, p *repository.Persistence, patientID string, logger *zap.Logger) models.PatientState {
	if p == nil {
		return models.DemoPatient(patientID)
	}
	state, err := p.Load(ctx, patientID, logLoadLimit)
	if err != nil {
		logger.Warn("Failed to load patient, running on demo data",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return models.DemoPatient(patientID)
	}
	return state
}

// buildSender picks the caregiver channel; nil means none is configured
func buildSender(cfg *config.Config, pub mqtt.Publisher, topics mqtt.Topics, logger *zap.Logger) notify.Sender {
	switch cfg.Notify.CaregiverChannel {
	case "telegram":
		return notify.NewTelegramSender(cfg.Notify.TelegramAPIURL, cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, cfg.Notify.DispatchTimeout, logger)
	case "whatsapp":
		return notify.NewWhatsAppSender(cfg.Notify.WhatsAppAPIURL, cfg.Notify.DispatchTimeout, logger)
	case "mqtt":
		return mqtt.NewSender(pub, topics, cfg.MQTT.QoS, logger)
	default:
		return nil
	}
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		VitalsInterval:      cfg.Engine.VitalsInterval,
		ComplianceInterval:  cfg.Engine.ComplianceInterval,
		CountdownInterval:   cfg.Engine.CountdownInterval,
		SOSCountdown:        cfg.Engine.SOSCountdown,
		TestCountdown:       cfg.Engine.TestCountdown,
		HistorySize:         cfg.Engine.HistorySize,
		InsightDelay:        cfg.Engine.InsightDelay,
		IOTimeout:           connectTimeout,
		ResetRemindersDaily: cfg.Engine.ResetRemindersDaily,
		DetectorEnabled:     cfg.Engine.DetectorEnabled,
	}
}
