package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	testnetRESTURL = "https://testnet.binancefuture.com"
	testnetWSURL   = "wss://stream.binancefuture.com"
	mainnetRESTURL = "https://fapi.binance.com"
	mainnetWSURL   = "wss://fstream.binance.com"
)

// ErrMissingCredentials is returned by RequireCredentials
var ErrMissingCredentials = errors.New("BINANCE_API_KEY and BINANCE_API_SECRET are required")

// Config holds all configuration for futuresbot
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Binance BinanceConfig `yaml:"binance" json:"binance"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	Audit   AuditConfig   `yaml:"audit" json:"audit"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds the dry-run HTTP API configuration
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	Host            string        `yaml:"host" json:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	APIKey          string        `yaml:"api_key" json:"api_key"`
	RateLimit       float64       `yaml:"rate_limit" json:"rate_limit"`
	CORSOrigins     []string      `yaml:"cors_origins" json:"cors_origins"`
}

// BinanceConfig holds futures API configuration
type BinanceConfig struct {
	APIKey     string        `yaml:"api_key" json:"api_key"`
	APISecret  string        `yaml:"api_secret" json:"api_secret"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	WSURL      string        `yaml:"ws_url" json:"ws_url"`
	Testnet    bool          `yaml:"testnet" json:"testnet"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	RecvWindow int64         `yaml:"recv_window" json:"recv_window"`
	RateLimit  float64       `yaml:"rate_limit" json:"rate_limit"` // requests per second
	RateBurst  int           `yaml:"rate_burst" json:"rate_burst"`

	ExchangeInfoCacheTTL time.Duration `yaml:"exchange_info_cache_ttl" json:"exchange_info_cache_ttl"`
}

// RedisConfig holds the optional shared catalog cache. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// AuditConfig holds the order journal sinks
type AuditConfig struct {
	LogPath     string `yaml:"log_path" json:"log_path"`
	DatabaseURL string `yaml:"database_url" json:"database_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Dir   string `yaml:"dir" json:"dir"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
		},
		Binance: BinanceConfig{
			Testnet:              true,
			Timeout:              10 * time.Second,
			MaxRetries:           3,
			RecvWindow:           5000,
			RateLimit:            10,
			RateBurst:            5,
			ExchangeInfoCacheTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "warn",
			Dir:   "logs",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file in the working directory and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.applyNetworkDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.APIKey = getEnv("SERVER_API_KEY", cfg.Server.APIKey)
	cfg.Server.RateLimit = getEnvAsFloat("SERVER_RATE_LIMIT", cfg.Server.RateLimit)

	b := &cfg.Binance
	b.APIKey = getEnv("BINANCE_API_KEY", b.APIKey)
	b.APISecret = getEnv("BINANCE_API_SECRET", getEnv("BINANCE_SECRET_KEY", b.APISecret))
	b.BaseURL = getEnv("BINANCE_FUTURES_BASE_URL", getEnv("BASE_URL", b.BaseURL))
	b.WSURL = getEnv("BINANCE_FUTURES_WS_URL", b.WSURL)
	b.Testnet = getEnvAsBool("BINANCE_TESTNET", b.Testnet)
	b.Timeout = getEnvAsDuration("BINANCE_TIMEOUT", b.Timeout)
	b.MaxRetries = getEnvAsInt("BINANCE_MAX_RETRIES", b.MaxRetries)
	b.RecvWindow = getEnvAsInt64("BINANCE_RECV_WINDOW", b.RecvWindow)
	b.RateLimit = getEnvAsFloat("BINANCE_RATE_LIMIT", b.RateLimit)
	b.RateBurst = getEnvAsInt("BINANCE_RATE_BURST", b.RateBurst)
	b.ExchangeInfoCacheTTL = getEnvAsDuration("EXCHANGE_INFO_CACHE_TTL", b.ExchangeInfoCacheTTL)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Audit.LogPath = getEnv("AUDIT_LOG_PATH", cfg.Audit.LogPath)
	cfg.Audit.DatabaseURL = getEnv("AUDIT_DATABASE_URL", cfg.Audit.DatabaseURL)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Dir = getEnv("LOG_DIR", cfg.Logging.Dir)
}

// applyNetworkDefaults fills endpoints left empty from the testnet flag
func (c *Config) applyNetworkDefaults() {
	if c.Binance.BaseURL == "" {
		c.Binance.BaseURL = mainnetRESTURL
		if c.Binance.Testnet {
			c.Binance.BaseURL = testnetRESTURL
		}
	}
	if c.Binance.WSURL == "" {
		c.Binance.WSURL = mainnetWSURL
		if c.Binance.Testnet {
			c.Binance.WSURL = testnetWSURL
		}
	}
	if c.Audit.LogPath == "" {
		c.Audit.LogPath = filepath.Join(c.Logging.Dir, "orders.log")
	}
}

// Validate validates the configuration. Credentials are checked separately
// because public commands run without them.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Binance.BaseURL == "" {
		return fmt.Errorf("binance base url is required")
	}
	if c.Binance.Timeout <= 0 {
		return fmt.Errorf("invalid binance timeout: %s", c.Binance.Timeout)
	}
	if c.Binance.MaxRetries < 0 {
		return fmt.Errorf("invalid binance max retries: %d", c.Binance.MaxRetries)
	}
	if c.Binance.RecvWindow <= 0 || c.Binance.RecvWindow > 60000 {
		return fmt.Errorf("invalid recv window: %d", c.Binance.RecvWindow)
	}
	if c.Binance.RateLimit <= 0 || c.Binance.RateBurst <= 0 {
		return fmt.Errorf("invalid rate limit: %v/s burst %d", c.Binance.RateLimit, c.Binance.RateBurst)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis db: %d", c.Redis.DB)
	}
	return nil
}

// RequireCredentials reports whether signed endpoints can be used
func (c *Config) RequireCredentials() error {
	if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Redacted returns a copy safe to log
func (c Config) Redacted() Config {
	c.Binance.APIKey = redact(c.Binance.APIKey)
	c.Binance.APISecret = redact(c.Binance.APISecret)
	c.Server.APIKey = redact(c.Server.APIKey)
	c.Redis.Password = redact(c.Redis.Password)
	c.Audit.DatabaseURL = redact(c.Audit.DatabaseURL)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int64Value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
