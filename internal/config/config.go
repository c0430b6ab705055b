package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file - ignore error if file doesn't exist
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Note: .env file not found or could not be loaded: %v\n", err)
	}
}

type Config struct {
	Primary       PrimaryConfig
	Database      DatabaseConfig
	Server        ServerConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Observability *ObservabilityConfig
	Providers     ProvidersConfig
}

type PrimaryConfig struct {
	Env string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	IdleTimeout        int
	CORSAllowedOrigins []string
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
	KeyPrefix    string
}

type KafkaConfig struct {
	Brokers []string
}

type ObservabilityConfig struct {
	ServiceName  string
	Environment  string
	Logging      LoggingConfig
	NewRelic     NewRelicConfig
	HealthChecks HealthChecksConfig
}

type LoggingConfig struct {
	Level              string
	Format             string
	SlowQueryThreshold time.Duration
}

type NewRelicConfig struct {
	LicenseKey                string
	AppLogForwardingEnabled   bool
	DistributedTracingEnabled bool
	DebugLogging              bool
}

type HealthChecksConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	Checks   []string
}

// ProvidersConfig carries the per-rail endpoints and secrets. Redirect-style
// rails (YooMoney, card gateway) need an API endpoint plus a webhook secret;
// manual rails only need a webhook secret for operator tooling callbacks.
type ProvidersConfig struct {
	YooMoney     ProviderEndpointConfig
	CardGateway  ProviderEndpointConfig
	Cash         ProviderEndpointConfig
	BankTransfer ProviderEndpointConfig
	CallTimeout  time.Duration
}

type ProviderEndpointConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
}

// Helper functions for parsing env vars
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}

func (c *ObservabilityConfig) GetLogLevel() string {
	if c.Logging.Level == "" {
		switch c.Environment {
		case "production":
			return "info"
		case "development":
			return "debug"
		default:
			return "info"
		}
	}
	return c.Logging.Level
}

func (c *ObservabilityConfig) IsProduction() bool {
	return c.Environment == "production"
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Primary: PrimaryConfig{
			Env: getEnv("BASTION_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("BASTION_DB_HOST", "localhost"),
			Port:            getEnvInt("BASTION_DB_PORT", 5432),
			User:            getEnv("BASTION_DB_USER", "bastion"),
			Password:        getEnv("BASTION_DB_PASSWORD", ""),
			Name:            getEnv("BASTION_DB_NAME", "bastion"),
			SSLMode:         getEnv("BASTION_DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("BASTION_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("BASTION_DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvInt("BASTION_DB_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("BASTION_DB_CONN_MAX_IDLE_TIME", 60),
		},
		Server: ServerConfig{
			Port:               getEnv("BASTION_SERVER_PORT", "8080"),
			ReadTimeout:        getEnvInt("BASTION_SERVER_READ_TIMEOUT", 30),
			WriteTimeout:       getEnvInt("BASTION_SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:        getEnvInt("BASTION_SERVER_IDLE_TIMEOUT", 60),
			CORSAllowedOrigins: getEnvSlice("BASTION_SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Address:      getEnv("BASTION_REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnv("BASTION_REDIS_PASSWORD", ""),
			DB:           getEnvInt("BASTION_REDIS_DB", 0),
			PoolSize:     getEnvInt("BASTION_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("BASTION_REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvDuration("BASTION_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("BASTION_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("BASTION_REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getEnvDuration("BASTION_REDIS_LOCK_TTL", 30*time.Second),
			KeyPrefix:    getEnv("BASTION_REDIS_KEY_PREFIX", "bastion:"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("BASTION_KAFKA_BROKERS", []string{"localhost:9092"}),
		},
		Observability: &ObservabilityConfig{
			ServiceName: "Bastion",
			Environment: getEnv("BASTION_ENV", "development"),
			Logging: LoggingConfig{
				Level:              getEnv("BASTION_LOG_LEVEL", "debug"),
				Format:             getEnv("BASTION_LOG_FORMAT", "console"),
				SlowQueryThreshold: getEnvDuration("BASTION_LOG_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			},
			NewRelic: NewRelicConfig{
				LicenseKey:                getEnv("BASTION_NEWRELIC_LICENSE_KEY", ""),
				AppLogForwardingEnabled:   getEnvBool("BASTION_NEWRELIC_LOG_FORWARDING", true),
				DistributedTracingEnabled: getEnvBool("BASTION_NEWRELIC_DISTRIBUTED_TRACING", true),
				DebugLogging:              getEnvBool("BASTION_NEWRELIC_DEBUG", false),
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  getEnvBool("BASTION_HEALTHCHECK_ENABLED", true),
				Interval: getEnvDuration("BASTION_HEALTHCHECK_INTERVAL", 30*time.Second),
				Timeout:  getEnvDuration("BASTION_HEALTHCHECK_TIMEOUT", 5*time.Second),
				Checks:   getEnvSlice("BASTION_HEALTHCHECK_CHECKS", []string{"database", "redis"}),
			},
		},
		Providers: ProvidersConfig{
			YooMoney: ProviderEndpointConfig{
				BaseURL:       getEnv("BASTION_YOOMONEY_BASE_URL", "https://yoomoney.ru/api"),
				SecretKey:     getEnv("BASTION_YOOMONEY_SECRET_KEY", ""),
				WebhookSecret: getEnv("BASTION_YOOMONEY_WEBHOOK_SECRET", ""),
			},
			CardGateway: ProviderEndpointConfig{
				BaseURL:       getEnv("BASTION_CARDGATEWAY_BASE_URL", "https://api.cardgateway.example"),
				SecretKey:     getEnv("BASTION_CARDGATEWAY_SECRET_KEY", ""),
				WebhookSecret: getEnv("BASTION_CARDGATEWAY_WEBHOOK_SECRET", ""),
			},
			Cash: ProviderEndpointConfig{
				WebhookSecret: getEnv("BASTION_CASH_WEBHOOK_SECRET", ""),
			},
			BankTransfer: ProviderEndpointConfig{
				WebhookSecret: getEnv("BASTION_BANKTRANSFER_WEBHOOK_SECRET", ""),
			},
			CallTimeout: getEnvDuration("BASTION_PROVIDER_CALL_TIMEOUT", 5*time.Second),
		},
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, fmt.Errorf("BASTION_DB_HOST is required")
	}
	if cfg.Database.Name == "" {
		return nil, fmt.Errorf("BASTION_DB_NAME is required")
	}

	return cfg, nil
}
