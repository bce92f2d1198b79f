// Package config loads platform configuration from a YAML document merged
// with environment-variable overrides, following the envconfig-first
// pattern of the service this codebase grew from, extended with the YAML
// layer the configuration surface requires.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// TierLimits holds the rate-limit and concurrency allowance for one API
// tier (§6 rate_limits.tiers.*).
type TierLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE"`
	MaxConcurrent     int `yaml:"max_concurrent" envconfig:"MAX_CONCURRENT"`
}

// OpenAIConfig configures the LLM/embedding provider (§6 openai.*).
type OpenAIConfig struct {
	ModelChoices         []string `yaml:"model_choices"`
	FallbackModel        string   `yaml:"fallback_model"`
	MaxTokensPerRequest  int      `yaml:"max_tokens_per_request"`
	MonthlyCostLimit     float64  `yaml:"monthly_cost_limit"`
	EmbeddingModel       string   `yaml:"embedding_model"`
}

// RedisConfig points at the Cache Layer's fast tier.
type RedisConfig struct {
	Host     string `yaml:"host" envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `yaml:"port" envconfig:"REDIS_PORT" default:"6379"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD" default:""`
}

// PostgresConfig points at the Cache Layer's / relational Job Repository's
// durable tier.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" envconfig:"POSTGRES_DSN" default:""`
	Echo        bool   `yaml:"echo" envconfig:"POSTGRES_ECHO" default:"false"`
}

// QdrantConfig is retained from the configuration surface for parity with
// the original platform's vector collaborator naming, even though this
// implementation's Vector Store Adapter talks to Weaviate; WaviateURL is
// the field actually consulted by internal/vectorstore.
type QdrantConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout"`
	CollectionName string `yaml:"collection_name"`
}

// BeatSchedule describes one periodic scheduler sweep (§6 celery.beat_schedule.*).
type BeatSchedule struct {
	Task     string `yaml:"task"`
	Schedule int    `yaml:"schedule"`
	Queue    string `yaml:"queue"`
	Args     []any  `yaml:"args"`
}

// CeleryConfig configures the broker and its periodic sweep schedule.
type CeleryConfig struct {
	BrokerURL     string                  `yaml:"broker_url"`
	ResultBackend string                  `yaml:"result_backend"`
	BeatSchedule  map[string]BeatSchedule `yaml:"beat_schedule"`
}

// WebhookConfig configures the Notifier's webhook variant (§4.8).
type WebhookConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout"`
	AuthToken      string `yaml:"auth_token"`
}

// LogFileConfig configures the notifier's outcome log file.
type LogFileConfig struct {
	Path        string `yaml:"path"`
	MaxSizeMB   int    `yaml:"max_size"`
	BackupCount int    `yaml:"backup_count"`
}

// NotificationsConfig groups notification-adjacent settings.
type NotificationsConfig struct {
	LogFile LogFileConfig `yaml:"log_file"`
}

// SecurityConfig holds secrets used to encrypt sensitive fields at rest.
type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key" envconfig:"ENCRYPTION_KEY" default:""`
}

// AppConfig is the top-level app.* section.
type AppConfig struct {
	Port              int      `yaml:"port"`
	Env               string   `yaml:"env"`
	Timezone          string   `yaml:"timezone"`
	MaxAttachmentSize int64    `yaml:"max_attachment_size"`
	CompanyDomains    []string `yaml:"company_domains"`
}

// Config holds configuration for the job-processing platform. Environment
// variables are processed with the MEMORY_BACKEND prefix, overlaying
// whatever was parsed from the YAML document (§6 "A YAML document merged
// with environment overrides").
type Config struct {
	BuildTarget string `envconfig:"BUILD_TARGET" default:"cloud-dev"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	VectorStore string `envconfig:"VECTOR_STORE" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	EmbedProvider string  `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string  `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	SearchAlpha   float32 `envconfig:"SEARCH_ALPHA" default:"0.6"`

	WaviateURL string `envconfig:"WAVIATE_URL" default:"weaviate:8080"`

	MachineID int `envconfig:"MACHINE_ID" default:"0"`

	TestingTempDatabase bool `envconfig:"TESTING_TEMP_DATABASE" default:"true"`

	App           AppConfig              `yaml:"app"`
	RateLimits    map[string]TierLimits  `yaml:"rate_limits_tiers"`
	OpenAI        OpenAIConfig           `yaml:"openai"`
	Redis         RedisConfig            `yaml:"redis"`
	Postgres      PostgresConfig         `yaml:"postgres"`
	Qdrant        QdrantConfig           `yaml:"qdrant"`
	Celery        CeleryConfig           `yaml:"celery"`
	Webhook       WebhookConfig          `yaml:"webhook"`
	Security      SecurityConfig         `yaml:"security"`
	Notifications NotificationsConfig    `yaml:"notifications"`
	LoggingLevel  string                 `yaml:"logging_level"`
}

type yamlDoc struct {
	App        AppConfig              `yaml:"app"`
	RateLimits struct {
		Tiers map[string]TierLimits `yaml:"tiers"`
	} `yaml:"rate_limits"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Redis         RedisConfig         `yaml:"redis"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Qdrant        QdrantConfig        `yaml:"qdrant"`
	Celery        CeleryConfig        `yaml:"celery"`
	Webhook       WebhookConfig       `yaml:"webhook"`
	Security      SecurityConfig      `yaml:"security"`
	Logging       struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// defaultTierLimits matches spec §8 scenario 2: free tier allows 10
// requests per minute.
func defaultTierLimits() map[string]TierLimits {
	return map[string]TierLimits{
		"free":       {RequestsPerMinute: 10, MaxConcurrent: 2},
		"pro":        {RequestsPerMinute: 120, MaxConcurrent: 10},
		"enterprise": {RequestsPerMinute: 1200, MaxConcurrent: 50},
		"admin":      {RequestsPerMinute: 6000, MaxConcurrent: 200},
	}
}

// ResolveDefaults validates BuildTarget and derives DBDriver/VectorStore
// when left at "auto" or empty, mirroring the build-target-to-driver
// mapping used for selecting storage backends.
func (c *Config) ResolveDefaults() error {
	var defaultDB string
	switch c.BuildTarget {
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	case "local":
		defaultDB = "sqlite"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}
	if c.VectorStore == "" || c.VectorStore == "auto" {
		c.VectorStore = "weaviate"
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true, "kv": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if len(c.RateLimits) == 0 {
		c.RateLimits = defaultTierLimits()
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "Asia/Singapore"
	}
	if c.App.MaxAttachmentSize == 0 {
		c.App.MaxAttachmentSize = 10 << 20 // 10 MB, §4.5 size gate
	}
	return nil
}

// Load parses the YAML document at path (if non-empty and present) and
// overlays environment variables with the MEMORY_BACKEND prefix, matching
// the envconfig.Process call in New but layering the YAML document first.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config yaml: %w", err)
			}
		} else {
			var doc yamlDoc
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("parse config yaml: %w", err)
			}
			cfg.App = doc.App
			cfg.RateLimits = doc.RateLimits.Tiers
			cfg.OpenAI = doc.OpenAI
			cfg.Redis = doc.Redis
			cfg.Postgres = doc.Postgres
			cfg.Qdrant = doc.Qdrant
			cfg.Celery = doc.Celery
			cfg.Webhook = doc.Webhook
			cfg.Security = doc.Security
			cfg.Notifications = doc.Notifications
			cfg.LoggingLevel = doc.Logging.Level
		}
	}

	if err := envconfig.Process("MEMORY_BACKEND", &cfg); err != nil {
		return nil, fmt.Errorf("process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("vector_store", cfg.VectorStore).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Msg("configuration loaded")

	return &cfg, nil
}

// New loads configuration using only environment variables, with no YAML
// document (the common case for containerized deployments that inject
// config purely through env).
func New() (*Config, error) {
	return Load("")
}

// NewForTesting returns a Config populated with values suitable for unit
// and integration tests.
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,
		HTTPPort:    8080,

		EmbedProvider: "ollama",
		EmbedModel:    "mxbai-embed-large",
		SearchAlpha:   0.6,
		WaviateURL:    "localhost:8082",

		BuildTarget: "local",
		DBDriver:    "sqlite",
		VectorStore: "waviate",

		MachineID:           1,
		TestingTempDatabase: true,
	}
	_ = cfg.ResolveDefaults()
	return cfg
}

// IsTesting reports whether Environment is set to testing.
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction reports whether Environment is set to production.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server listen address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// TierLimit returns the configured limits for tier, defaulting to the free
// tier's limits when unknown.
func (c *Config) TierLimit(tier string) TierLimits {
	if l, ok := c.RateLimits[tier]; ok {
		return l
	}
	return c.RateLimits["free"]
}
