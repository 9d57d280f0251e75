package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	App        AppConfig        `yaml:"app"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Resend     ResendConfig     `yaml:"resend"`
	Storage    StorageConfig    `yaml:"storage"`
	Import     ImportConfig     `yaml:"import"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings. URL doubles as the
// DSN the change-feed listener connects with.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings for import progress tracking
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AppConfig holds application-level settings consumed by outreach
// message templating.
type AppConfig struct {
	BaseURL string `yaml:"base_url"`
}

// EnrichmentConfig holds the profile enrichment provider settings
type EnrichmentConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TwilioConfig holds Twilio SMS credentials. Twilio wins over Resend
// when both are configured.
type TwilioConfig struct {
	AccountSID  string `yaml:"account_sid"`
	AuthToken   string `yaml:"auth_token"`
	PhoneNumber string `yaml:"phone_number"`
	BaseURL     string `yaml:"base_url"`
}

// Configured reports whether Twilio credentials are present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

// ResendConfig holds Resend SMS API settings
type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Configured reports whether Resend credentials are present.
func (c ResendConfig) Configured() bool {
	return c.APIKey != ""
}

// StorageConfig holds S3 settings for uploaded CSV archiving
type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ImportConfig holds CSV import pipeline settings
type ImportConfig struct {
	BatchSize       int `yaml:"batch_size"`
	BatchPauseMs    int `yaml:"batch_pause_ms"`
	ProgressTTLMins int `yaml:"progress_ttl_mins"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "https://app.hunterai.com"
	}
	if cfg.Enrichment.BaseURL == "" {
		cfg.Enrichment.BaseURL = "https://api.surfe.com/v1"
	}
	if cfg.Enrichment.TimeoutSeconds == 0 {
		cfg.Enrichment.TimeoutSeconds = 30
	}
	if cfg.Twilio.BaseURL == "" {
		cfg.Twilio.BaseURL = "https://api.twilio.com"
	}
	if cfg.Resend.BaseURL == "" {
		cfg.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "eu-west-1"
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 50
	}
	if cfg.Import.BatchPauseMs == 0 {
		cfg.Import.BatchPauseMs = 100
	}
	if cfg.Import.ProgressTTLMins == 0 {
		cfg.Import.ProgressTTLMins = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if v := os.Getenv("APP_URL"); v != "" {
		cfg.App.BaseURL = v
	}
	if apiKey := os.Getenv("SURFE_API_KEY"); apiKey != "" {
		cfg.Enrichment.APIKey = apiKey
	}
	if baseURL := os.Getenv("SURFE_BASE_URL"); baseURL != "" {
		cfg.Enrichment.BaseURL = baseURL
	}
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		cfg.Twilio.AccountSID = sid
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		cfg.Twilio.AuthToken = token
	}
	if number := os.Getenv("TWILIO_PHONE_NUMBER"); number != "" {
		cfg.Twilio.PhoneNumber = number
	}
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		cfg.Resend.APIKey = apiKey
	}
	if bucket := os.Getenv("STORAGE_S3_BUCKET"); bucket != "" {
		cfg.Storage.Bucket = bucket
		cfg.Storage.Enabled = true
	}
	if region := os.Getenv("STORAGE_S3_REGION"); region != "" {
		cfg.Storage.Region = region
	}
	if v := os.Getenv("STORAGE_S3_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_S3_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}

	return cfg, nil
}
