// Package config loads and validates service configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Dataset, Redis, Kafka, Postgres, Chat, etc.).
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Search    SearchConfig    `yaml:"search"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Chat      ChatConfig      `yaml:"chat"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// DatasetConfig points at the policy JSON resource. An empty path selects
// the dataset compiled into the binary.
type DatasetConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig controls result sizes of the HTTP search API.
type SearchConfig struct {
	MaxResults int `yaml:"maxResults"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings for search analytics.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	ConsumerGroup  string   `yaml:"consumerGroup"`
	AnalyticsTopic string   `yaml:"analyticsTopic"`
	BufferSize     int      `yaml:"bufferSize"`
}

// PostgresConfig holds PostgreSQL connection parameters for the analytics
// snapshot store.
type PostgresConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	SSLMode          string        `yaml:"sslMode"`
	MaxOpenConns     int           `yaml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ChatConfig configures the OpenAI-compatible completion backend.
type ChatConfig struct {
	BaseURL          string        `yaml:"baseUrl"`
	APIKey           string        `yaml:"apiKey"`
	Model            string        `yaml:"model"`
	Temperature      float64       `yaml:"temperature"`
	MaxTokens        int           `yaml:"maxTokens"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
	MaxSessions      int           `yaml:"maxSessions"`
	MaxTurns         int           `yaml:"maxTurns"`
}

// RateLimitConfig bounds how often one client may call the chat endpoints.
// TrustedProxies lists the addresses or CIDR ranges whose X-Forwarded-For
// header is believed; every other peer is keyed by its own address.
type RateLimitConfig struct {
	Requests       int           `yaml:"requests"`
	Window         time.Duration `yaml:"window"`
	TrustedProxies []string      `yaml:"trustedProxies"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port == c.Server.Port) {
		return fmt.Errorf("config: metrics.port %d must be positive and differ from server.port", c.Metrics.Port)
	}
	if c.Search.MaxResults <= 0 {
		return errors.New("config: search.maxResults must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.brokers is required when kafka is enabled")
	}
	if c.Chat.MaxTokens <= 0 {
		return errors.New("config: chat.maxTokens must be positive")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("config: chat.temperature %.2f outside [0, 2]", c.Chat.Temperature)
	}
	if c.Chat.MaxSessions <= 0 || c.Chat.MaxTurns <= 0 {
		return errors.New("config: chat.maxSessions and chat.maxTurns must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("config: rateLimit.requests and rateLimit.window must be positive")
	}
	for _, p := range c.RateLimit.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("config: rateLimit.trustedProxies entry %q is not an address or CIDR", p)
		}
	}
	return nil
}

// defaultConfig returns a Config suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    45 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Search: SearchConfig{
			MaxResults: 100,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			ConsumerGroup:  "nitisetu-analytics",
			AnalyticsTopic: "policy-search-events",
			BufferSize:     10000,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "nitisetu",
			User:             "nitisetu",
			Password:         "localdev",
			SSLMode:          "disable",
			MaxOpenConns:     5,
			MaxIdleConns:     2,
			ConnMaxLifetime:  5 * time.Minute,
			SnapshotInterval: time.Minute,
		},
		Chat: ChatConfig{
			BaseURL:          "https://api.groq.com/openai/v1",
			Model:            "llama-3.3-70b-versatile",
			Temperature:      0.3,
			MaxTokens:        1000,
			Timeout:          30 * time.Second,
			MaxAttempts:      2,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			MaxSessions:      1000,
			MaxTurns:         20,
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads NS_* environment variables and overrides the
// corresponding config fields. GROQ_API_KEY is honoured for the chat key.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NS_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("NS_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("NS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("NS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NS_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("NS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("NS_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("NS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("NS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("NS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NS_RATELIMIT_TRUSTED_PROXIES"); v != "" {
		cfg.RateLimit.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("NS_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("NS_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("NS_CHAT_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("NS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("NS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
