package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure in this package.
var ErrInvalidConfig = errors.New("invalid config")

// State backends
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config process configuration, read once from the environment at start-up.
// The live-reloadable alert settings live in RuntimeConfig.
type Config struct {
	API struct {
		BaseURL      string
		SiteID       string
		StartTimeAgo string // lookback window, e.g. "1 DAYS"
		GetPhotos    bool
		Timeout      time.Duration
	}

	Alert struct {
		ConfigPath string // JSON runtime config, reloaded every cycle
		Timezone   string
	}

	// Sender credentials for the outbound alert mail
	Mail struct {
		Host         string
		Port         int
		Username     string
		Password     string
		From         string
		AttachReport bool
		Timeout      time.Duration
	}

	State struct {
		Backend  string
		FilePath string
		RedisKey string
		Redis    RedisConfig
		Database DatabaseConfig
	}

	MQTT MQTTConfig

	Metrics struct {
		Addr string // empty disables the /metrics listener
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load builds the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.API.BaseURL = getEnv("API_BASE_URL", "https://cfvfdt3cq4.execute-api.eu-west-1.amazonaws.com/test")
	cfg.API.SiteID = getEnv("API_SITE_ID", "0")
	cfg.API.StartTimeAgo = getEnv("API_START_TIME_AGO", "1 DAYS")
	cfg.API.GetPhotos = getEnvBool("API_GET_PHOTOS", false)
	cfg.API.Timeout = getEnvDuration("API_TIMEOUT", 30*time.Second)

	cfg.Alert.ConfigPath = getEnv("ALERT_CONFIG_PATH", "alert_config.json")
	cfg.Alert.Timezone = getEnv("ALERT_TIMEZONE", "Europe/Oslo")

	cfg.Mail.Host = getEnv("SMTP_HOST", "smtp.gmail.com")
	cfg.Mail.Port = getEnvInt("SMTP_PORT", 465)
	cfg.Mail.Username = getEnv("SMTP_USERNAME", "")
	cfg.Mail.Password = getEnv("SMTP_PASSWORD", "")
	cfg.Mail.From = getEnv("MAIL_FROM", cfg.Mail.Username)
	cfg.Mail.AttachReport = getEnvBool("MAIL_ATTACH_REPORT", false)
	cfg.Mail.Timeout = getEnvDuration("SMTP_TIMEOUT", 30*time.Second)

	cfg.State.Backend = strings.ToLower(getEnv("STATE_BACKEND", BackendFile))
	cfg.State.FilePath = getEnv("STATE_FILE", "alert_stored_data.json")
	cfg.State.RedisKey = getEnv("STATE_REDIS_KEY", "sensorita:alert:baseline")
	cfg.State.Redis = RedisConfig{Addr: "localhost:6379"}
	cfg.State.Redis.LoadFromEnv("REDIS")
	cfg.State.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "sensorita",
		SSLMode:  "disable",
		MaxConns: 2,
		MaxIdle:  1,
	}
	cfg.State.Database.LoadFromEnv("DB")

	cfg.MQTT = MQTTConfig{
		ClientID: "sensorita-alert",
		QoS:      1,
		Topic:    "sensorita/alerts",
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: API_BASE_URL is required", ErrInvalidConfig)
	}
	if c.Mail.Username == "" || c.Mail.Password == "" {
		return fmt.Errorf("%w: SMTP_USERNAME and SMTP_PASSWORD are required", ErrInvalidConfig)
	}
	if c.Mail.From == "" {
		return fmt.Errorf("%w: MAIL_FROM is required", ErrInvalidConfig)
	}
	switch c.State.Backend {
	case BackendFile, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("%w: unknown STATE_BACKEND %q", ErrInvalidConfig, c.State.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := getEnv(key, ""); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := getEnv(key, ""); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := getEnv(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
