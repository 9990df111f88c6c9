package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT broker settings
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // e.g. "vitalguard"
}

// Config engine service configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// Enabled flags for the optional backends; an empty address disables them
	Backends struct {
		DatabaseEnabled bool
		RedisEnabled    bool
		MQTTEnabled     bool
	}

	Patient struct {
		ID string
	}

	Engine struct {
		VitalsInterval      time.Duration // vitals tick cadence, default 2s
		ComplianceInterval  time.Duration // medication compliance cadence, default 10s
		CountdownInterval   time.Duration // SOS countdown cadence, default 1s
		SOSCountdown        int           // countdown seconds for a live emergency
		TestCountdown       int           // countdown seconds for a system test
		HistorySize         int           // points kept per vitals metric
		InsightDelay        time.Duration // delay before the post-SOS insight refresh
		ResetRemindersDaily bool          // clear taken/reminderSent on a new local day
		DetectorEnabled     bool          // passive threshold detector
		VitalsSource        string        // "simulated" or "mqtt"
	}

	Notify struct {
		CaregiverChannel string // telegram, whatsapp, mqtt, none
		TelegramBotToken string
		TelegramChatID   string
		TelegramAPIURL   string
		WhatsAppAPIURL   string
		DispatchTimeout  time.Duration
		SpeechEnabled    bool
		ToneEnabled      bool
		MaxToasts        int
	}

	Insight struct {
		APIURL  string
		Timeout time.Duration
	}

	Geo struct {
		APIURL    string
		UserAgent string
		Timeout   time.Duration
	}

	Cache struct {
		KeyPrefix   string // e.g. "vitalguard:patient:"
		SnapshotTTL int    // seconds
	}

	Metrics struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}

	// Database
	cfg.Database.Host = getEnv("DB_HOST", "")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalguard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 5)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 2)
	cfg.Backends.DatabaseEnabled = cfg.Database.Host != ""

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Backends.RedisEnabled = cfg.Redis.Addr != ""

	// MQTT
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vitalguard-engine")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "vitalguard")
	cfg.Backends.MQTTEnabled = cfg.MQTT.Broker != ""

	cfg.Patient.ID = getEnv("PATIENT_ID", "PT-89234")

	// Engine cadences
	cfg.Engine.VitalsInterval = getEnvDuration("VITALS_INTERVAL", 2*time.Second)
	cfg.Engine.ComplianceInterval = getEnvDuration("COMPLIANCE_INTERVAL", 10*time.Second)
	cfg.Engine.CountdownInterval = getEnvDuration("COUNTDOWN_INTERVAL", time.Second)
	cfg.Engine.SOSCountdown = getEnvInt("SOS_COUNTDOWN", 10)
	cfg.Engine.TestCountdown = getEnvInt("TEST_COUNTDOWN", 5)
	cfg.Engine.HistorySize = getEnvInt("HISTORY_SIZE", 20)
	cfg.Engine.InsightDelay = getEnvDuration("INSIGHT_DELAY", time.Second)
	cfg.Engine.ResetRemindersDaily = getEnvBool("RESET_REMINDERS_DAILY", false)
	cfg.Engine.DetectorEnabled = getEnvBool("DETECTOR_ENABLED", false)
	cfg.Engine.VitalsSource = getEnv("VITALS_SOURCE", "simulated")

	// Notification channels
	cfg.Notify.CaregiverChannel = strings.ToLower(getEnv("CAREGIVER_CHANNEL", "telegram"))
	cfg.Notify.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Notify.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")
	cfg.Notify.TelegramAPIURL = getEnv("TELEGRAM_API_URL", "https://api.telegram.org")
	cfg.Notify.WhatsAppAPIURL = getEnv("WHATSAPP_API_URL", "")
	cfg.Notify.DispatchTimeout = getEnvDuration("DISPATCH_TIMEOUT", 10*time.Second)
	cfg.Notify.SpeechEnabled = getEnvBool("SPEECH_ENABLED", true)
	cfg.Notify.ToneEnabled = getEnvBool("TONE_ENABLED", true)
	cfg.Notify.MaxToasts = getEnvInt("MAX_TOASTS", 50)

	cfg.Insight.APIURL = getEnv("INSIGHT_API_URL", "")
	cfg.Insight.Timeout = getEnvDuration("INSIGHT_TIMEOUT", 15*time.Second)

	cfg.Geo.APIURL = getEnv("GEOCODE_API_URL", "https://nominatim.openstreetmap.org")
	cfg.Geo.UserAgent = getEnv("GEOCODE_USER_AGENT", "VitalGuard/1.0")
	cfg.Geo.Timeout = getEnvDuration("GEOCODE_TIMEOUT", 5*time.Second)

	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "vitalguard:patient:")
	cfg.Cache.SnapshotTTL = getEnvInt("CACHE_SNAPSHOT_TTL", 30)

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Notify.CaregiverChannel {
	case "telegram", "whatsapp", "mqtt", "none":
	default:
		return fmt.Errorf("unsupported CAREGIVER_CHANNEL: %s", c.Notify.CaregiverChannel)
	}
	switch c.Engine.VitalsSource {
	case "simulated", "mqtt":
	default:
		return fmt.Errorf("unsupported VITALS_SOURCE: %s", c.Engine.VitalsSource)
	}
	if c.Engine.SOSCountdown < 0 || c.Engine.TestCountdown < 0 {
		return fmt.Errorf("countdown values must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
