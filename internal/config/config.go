package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	JWT           JWTConfig           `yaml:"jwt"`
	Log           LogConfig           `yaml:"log"`
	Engine        EngineConfig        `yaml:"engine"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Database      string `yaml:"database"`
	SSLMode       string `yaml:"ssl_mode"`
	MigrateOnBoot bool   `yaml:"migrate_on_boot"`
}

// RedisConfig is used when soft locks live in redis
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig is used when notification intents are published to a broker
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// JWTConfig contains bearer token verification settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// EngineConfig holds the reservation engine policy knobs
type EngineConfig struct {
	Store            string  `yaml:"store"`           // "memory" or "postgres"
	SoftLockStore    string  `yaml:"soft_lock_store"` // "memory", "postgres" or "redis"
	SoftLockTTL      string  `yaml:"soft_lock_ttl"`
	PenaltyDailyRate float64 `yaml:"penalty_daily_rate"`
	RatingWindow     int     `yaml:"rating_window"`
	AutoConfirm      bool    `yaml:"auto_confirm"`
	PremiumDiscount  float64 `yaml:"premium_discount_percent"`
	ReminderLead     string  `yaml:"reminder_lead"`
	NotificationTTL  string  `yaml:"notification_retention"`
}

// NotificationsConfig selects how notification intents leave the engine
type NotificationsConfig struct {
	Dispatcher      string `yaml:"dispatcher"` // "log" or "kafka"
	BreakerFailures uint32 `yaml:"breaker_failures"`
	BreakerTimeout  string `yaml:"breaker_timeout"`
	BreakerHalfOpen uint32 `yaml:"breaker_half_open"`
}

// SchedulerConfig contains cron schedule settings (seconds precision, UTC)
type SchedulerConfig struct {
	OverdueSweep        string `yaml:"overdue_sweep"`
	ExpirySweep         string `yaml:"expiry_sweep"`
	ReminderSweep       string `yaml:"reminder_sweep"`
	NotificationCleanup string `yaml:"notification_cleanup"`
	StatusRefresh       string `yaml:"status_refresh"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Kafka
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("KAFKA_TOPIC"); val != "" {
		c.Kafka.Topic = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Engine
	if val := os.Getenv("ENGINE_STORE"); val != "" {
		c.Engine.Store = val
	}
	if val := os.Getenv("SOFT_LOCK_STORE"); val != "" {
		c.Engine.SoftLockStore = val
	}
	if val := os.Getenv("SOFT_LOCK_TTL"); val != "" {
		c.Engine.SoftLockTTL = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Engine defaults
	if c.Engine.Store == "" {
		c.Engine.Store = "memory"
	}
	if c.Engine.SoftLockStore == "" {
		c.Engine.SoftLockStore = c.Engine.Store
	}
	if c.Engine.SoftLockTTL == "" {
		c.Engine.SoftLockTTL = "30m"
	}
	if c.Engine.PenaltyDailyRate == 0 {
		c.Engine.PenaltyDailyRate = 0.2
	}
	if c.Engine.RatingWindow == 0 {
		c.Engine.RatingWindow = 5
	}
	if c.Engine.PremiumDiscount == 0 {
		c.Engine.PremiumDiscount = 15
	}
	if c.Engine.ReminderLead == "" {
		c.Engine.ReminderLead = "24h"
	}
	if c.Engine.NotificationTTL == "" {
		c.Engine.NotificationTTL = "720h"
	}
	for name, val := range map[string]string{
		"soft_lock_ttl":          c.Engine.SoftLockTTL,
		"reminder_lead":          c.Engine.ReminderLead,
		"notification_retention": c.Engine.NotificationTTL,
	} {
		if d, err := time.ParseDuration(val); err != nil || d <= 0 {
			return fmt.Errorf("invalid engine %s: %q", name, val)
		}
	}
	if c.Engine.PenaltyDailyRate < 0 {
		return fmt.Errorf("penalty daily rate must not be negative")
	}

	switch c.Engine.Store {
	case "memory":
	case "postgres":
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown engine store: %q", c.Engine.Store)
	}

	switch c.Engine.SoftLockStore {
	case "memory":
		if c.Engine.Store != "memory" {
			return fmt.Errorf("memory soft lock store requires the memory engine store")
		}
	case "postgres":
		if c.Engine.Store != "postgres" {
			return fmt.Errorf("postgres soft lock store requires the postgres engine store")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis soft lock store")
		}
	default:
		return fmt.Errorf("unknown soft lock store: %q", c.Engine.SoftLockStore)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Notification defaults
	if c.Notifications.Dispatcher == "" {
		c.Notifications.Dispatcher = "log"
	}
	if c.Notifications.BreakerFailures == 0 {
		c.Notifications.BreakerFailures = 5
	}
	if c.Notifications.BreakerTimeout == "" {
		c.Notifications.BreakerTimeout = "30s"
	}
	if c.Notifications.BreakerHalfOpen == 0 {
		c.Notifications.BreakerHalfOpen = 1
	}
	if _, err := time.ParseDuration(c.Notifications.BreakerTimeout); err != nil {
		return fmt.Errorf("invalid breaker timeout: %q", c.Notifications.BreakerTimeout)
	}
	switch c.Notifications.Dispatcher {
	case "log":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required for the kafka dispatcher")
		}
		if c.Kafka.Topic == "" {
			c.Kafka.Topic = "rental.notifications"
		}
	default:
		return fmt.Errorf("unknown notification dispatcher: %q", c.Notifications.Dispatcher)
	}

	// Scheduler defaults
	if c.Scheduler.OverdueSweep == "" {
		c.Scheduler.OverdueSweep = "0 */30 * * * *" // every 30 minutes
	}
	if c.Scheduler.ExpirySweep == "" {
		c.Scheduler.ExpirySweep = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReminderSweep == "" {
		c.Scheduler.ReminderSweep = "0 0 * * * *" // hourly
	}
	if c.Scheduler.NotificationCleanup == "" {
		c.Scheduler.NotificationCleanup = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.StatusRefresh == "" {
		c.Scheduler.StatusRefresh = "0 * * * * *" // every minute
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if d.User == "" {
		return fmt.Errorf("database user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// SoftLockTTLDuration returns the parsed soft lock TTL. Call after Validate.
func (c *Config) SoftLockTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.Engine.SoftLockTTL)
	return d
}

// ReminderLeadDuration returns how far ahead of a booking's end reminders fire.
func (c *Config) ReminderLeadDuration() time.Duration {
	d, _ := time.ParseDuration(c.Engine.ReminderLead)
	return d
}

// NotificationRetention returns how long read notifications are kept.
func (c *Config) NotificationRetention() time.Duration {
	d, _ := time.ParseDuration(c.Engine.NotificationTTL)
	return d
}

// BreakerTimeoutDuration returns how long the notification breaker stays open.
func (c *Config) BreakerTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Notifications.BreakerTimeout)
	return d
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		sslMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
