package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
)

// MaxRowLimit is the hard cap on biometric rows sent to the model in one request.
const MaxRowLimit = 1000

// ConfigFile is read from the working directory when present.
const ConfigFile = "config.yaml"

// Config holds all configuration for biometric-advisor.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Warehouse WarehouseConfig `yaml:"warehouse"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// WarehouseConfig selects and configures the analytical store.
// BigQuery uses ProjectID/Location and Application Default Credentials;
// postgres and mssql use the host fields.
type WarehouseConfig struct {
	Type      string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"bigquery"`
	ProjectID string `yaml:"project_id" env:"GOOGLE_CLOUD_PROJECT" env-default:""`
	Location  string `yaml:"location" env:"WAREHOUSE_LOCATION" env-default:""`

	Host     string `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"WAREHOUSE_PORT" env-default:"0"`
	User     string `yaml:"user" env:"WAREHOUSE_USER" env-default:""`
	Password string `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"WAREHOUSE_DATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"WAREHOUSE_SSL_MODE" env-default:"require"`

	// Tables are "dataset.table" or "project.dataset.table" for BigQuery and
	// "schema.table" elsewhere.
	SleepTable    string `yaml:"sleep_table" env:"WAREHOUSE_SLEEP_TABLE" env-default:"dev.sleep_daily_summary"`
	ActivityTable string `yaml:"activity_table" env:"WAREHOUSE_ACTIVITY_TABLE" env-default:"dev.activity_daily_summary"`
	AdviceTable   string `yaml:"advice_table" env:"WAREHOUSE_ADVICE_TABLE" env-default:"dev.health_advice"`

	// MigrationsPath enables golang-migrate on start-up for the postgres warehouse.
	MigrationsPath string `yaml:"migrations_path" env:"WAREHOUSE_MIGRATIONS_PATH" env-default:""`
	// StatementTimeout is sent as the postgres statement_timeout; 0 keeps the server's.
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"WAREHOUSE_STATEMENT_TIMEOUT" env-default:"60s"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL     string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.7"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"4096"`

	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML

	// Generation over many records is slow; the request ceiling is minutes.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"LLM_REQUEST_TIMEOUT" env-default:"300s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"LLM_CONNECT_TIMEOUT" env-default:"10s"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"LLM_READ_TIMEOUT" env-default:"290s"`
}

// PipelineConfig holds the fetch filters and limits.
type PipelineConfig struct {
	RowLimit          int `yaml:"row_limit" env:"PIPELINE_ROW_LIMIT" env-default:"100"`
	MinSleepSeconds   int `yaml:"min_sleep_seconds" env:"PIPELINE_MIN_SLEEP_SECONDS" env-default:"1800"`
	MaxNonWearSeconds int `yaml:"max_non_wear_seconds" env:"PIPELINE_MAX_NON_WEAR_SECONDS" env-default:"14400"`
	// LookbackDays bounds the implicit date window; 0 disables the lower bound.
	LookbackDays int `yaml:"lookback_days" env:"PIPELINE_LOOKBACK_DAYS" env-default:"30"`
}

// Load reads .env (if any), then config.yaml with environment variable overrides,
// or the environment alone when there is no config.yaml.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(ConfigFile); err == nil {
		if err := cleanenv.ReadConfig(ConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Warehouse.Type = strings.ToLower(strings.TrimSpace(c.Warehouse.Type))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	switch c.Warehouse.Type {
	case "bigquery", "postgres", "mssql":
	default:
		return fmt.Errorf("warehouse type %q: %w", c.Warehouse.Type, apperrors.ErrUnsupportedType)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm provider %q: %w", c.LLM.Provider, apperrors.ErrUnsupportedType)
	}

	if c.Pipeline.RowLimit < 1 || c.Pipeline.RowLimit > MaxRowLimit {
		return fmt.Errorf("row_limit %d (must be 1..%d): %w", c.Pipeline.RowLimit, MaxRowLimit, apperrors.ErrInvalidRowLimit)
	}
	if c.Pipeline.LookbackDays < 0 {
		return fmt.Errorf("lookback_days must not be negative")
	}

	for name, table := range map[string]string{
		"sleep_table":    c.Warehouse.SleepTable,
		"activity_table": c.Warehouse.ActivityTable,
		"advice_table":   c.Warehouse.AdviceTable,
	} {
		if !validTableName(table) {
			return fmt.Errorf("%s %q must be <dataset>.<table> with letters, digits, '_' or '-'", name, table)
		}
	}

	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("llm request_timeout must be positive")
	}

	return nil
}

// validTableName accepts dotted identifiers only, since table names are rendered into SQL text.
func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			default:
				return false
			}
		}
	}
	return true
}

// APIKey returns the key for the configured provider.
func (c *LLMConfig) APIKey() string {
	if c.Provider == "anthropic" {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// ProviderName is the human-readable provider name used in error messages.
func (c *LLMConfig) ProviderName() string {
	if c.Provider == "anthropic" {
		return "Anthropic"
	}
	return "OpenAI"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}
