// Package config loads service configuration from YAML files and
// DEEPRESEARCH_-prefixed environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Postgres sslmode values accepted by DatabaseConfig.SSLMode.
const (
	SSLModeDisable    = "disable"
	SSLModeRequire    = "require"
	SSLModeVerifyCA   = "verify-ca"
	SSLModeVerifyFull = "verify-full"
)

// Config is the root configuration for the deep research service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Generation GenerationConfig `mapstructure:"generation"`
	Research   ResearchConfig   `mapstructure:"research"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// ServerConfig controls the HTTP listener and its companion metrics
// listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig carries the Postgres connection and pool settings.
// Password should come from the environment in production.
type DatabaseConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Name              string        `mapstructure:"name"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`

	// MigrationPath points at the golang-migrate source directory.
	// MigrationAutoRun applies pending migrations at startup.
	MigrationPath    string `mapstructure:"migration_path"`
	MigrationAutoRun bool   `mapstructure:"migration_auto_run"`
}

// TemporalConfig identifies the Temporal cluster and the task queue
// the research workflows run on.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig configures the zerolog root logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	Output     string `mapstructure:"output"` // stdout or stderr
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// KafkaConfig configures the session lifecycle event publisher.
// When Enabled is false events are logged and dropped.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// GenerationConfig holds settings for the external generation capability.
type GenerationConfig struct {
	// Provider selects the backend: "openai" or "anthropic".
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// MaxRetries applies to summarization calls only. The main
	// generation call is never retried here; the orchestrator owns
	// that policy.
	MaxRetries  int     `mapstructure:"max_retries"`
	Temperature float64 `mapstructure:"temperature"`
	// RateLimitRPS and RateLimitBurst shape the request rate toward
	// the provider.
	RateLimitRPS   float64         `mapstructure:"rate_limit_rps"`
	RateLimitBurst int             `mapstructure:"rate_limit_burst"`
	OpenAI         OpenAIConfig    `mapstructure:"openai"`
	Anthropic      AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI-specific settings. The API key is read
// only from DEEPRESEARCH_GENERATION_OPENAI_API_KEY, never from files.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"-"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings. The API key is
// read only from DEEPRESEARCH_GENERATION_ANTHROPIC_API_KEY.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"-"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// ResearchConfig holds orchestration pipeline knobs. Field defaults mirror the
// pipeline's documented budgets; see setDefaults.
type ResearchConfig struct {
	// WaitWindow bounds how long the orchestrator defers to let document
	// ingestion finish before proceeding anyway.
	WaitWindow time.Duration `mapstructure:"wait_window"`
	// RequeueDelay is the pause between document-readiness checks while
	// inside the wait window.
	RequeueDelay time.Duration `mapstructure:"requeue_delay"`

	// SearchAPI selects the search backend of the generation workflow
	// ("none" keeps it offline).
	SearchAPI string `mapstructure:"search_api"`

	// BriefMaxChars bounds the research brief echoed into the reasoning
	// narrative.
	BriefMaxChars int `mapstructure:"brief_max_chars"`

	// Document holds the document-ingestion budgets.
	Document DocumentBudget `mapstructure:"document"`
	// Report holds the report-summarization budgets.
	Report ReportBudget `mapstructure:"report"`

	// Models holds per-stage model identifier overrides. Empty entries are
	// omitted from the invocation so provider defaults apply.
	Models StageModels `mapstructure:"models"`

	// ModelCostsJSON is the pricing table: a JSON object mapping model name to
	// {"input": rate, "output": rate} or [input, output] per-1K-token USD
	// rates, with an optional "default" entry.
	ModelCostsJSON string `mapstructure:"model_costs_json"`
}

// DocumentBudget bounds document ingestion outputs.
type DocumentBudget struct {
	// StoreMaxChars caps the stored text excerpt.
	StoreMaxChars int `mapstructure:"store_max_chars"`
	// SummaryMaxChars caps the text handed to summarization.
	SummaryMaxChars int `mapstructure:"summary_max_chars"`
	// SummaryMaxTokens is the summarization output token budget.
	SummaryMaxTokens int `mapstructure:"summary_max_tokens"`
	// SummaryFallbackChars is the excerpt prefix used when summarization
	// fails or returns nothing.
	SummaryFallbackChars int `mapstructure:"summary_fallback_chars"`
}

// ReportBudget bounds report summarization.
type ReportBudget struct {
	// SummaryMaxChars caps the report text handed to summarization.
	SummaryMaxChars int `mapstructure:"summary_max_chars"`
	// SummaryMaxTokens is the summarization output token budget.
	SummaryMaxTokens int `mapstructure:"summary_max_tokens"`
	// SummaryFallbackChars is the report prefix used when summarization fails
	// or returns nothing.
	SummaryFallbackChars int `mapstructure:"summary_fallback_chars"`
}

// StageModels holds per-stage model identifier overrides.
type StageModels struct {
	// Research drives the research phase of the generation workflow.
	Research string `mapstructure:"research"`
	// Compression drives compression and is the fallback summarization model.
	Compression string `mapstructure:"compression"`
	// FinalReport drives final report writing.
	FinalReport string `mapstructure:"final_report"`
	// Summarization drives document and report summarization.
	Summarization string `mapstructure:"summarization"`
	// Cost overrides the model used for cost estimation.
	Cost string `mapstructure:"cost"`
}

// SummarizationModel resolves the model used for summarization calls:
// the explicit summarization override, else the compression model.
func (m StageModels) SummarizationModel() string {
	if m.Summarization != "" {
		return m.Summarization
	}
	return m.Compression
}

// StorageConfig holds uploaded-document store settings.
type StorageConfig struct {
	// Root is the directory uploaded files are stored under.
	Root string `mapstructure:"root"`
	// MaxUploadBytes caps a single uploaded file.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DSN assembles the Postgres connection URL. User and password are
// URL-escaped so special characters survive.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the listen address for the API server.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the listen address for the metrics server.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load resolves configuration in precedence order: defaults, an
// optional config.yaml, then DEEPRESEARCH_ environment variables.
// Secrets are taken from the environment only.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DEEPRESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/deep-research-service")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets fills the mapstructure:"-" fields from the environment.
func loadSecrets(cfg *Config) {
	cfg.Generation.OpenAI.APIKey = os.Getenv("DEEPRESEARCH_GENERATION_OPENAI_API_KEY")
	cfg.Generation.Anthropic.APIKey = os.Getenv("DEEPRESEARCH_GENERATION_ANTHROPIC_API_KEY")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "deepresearch")
	v.SetDefault("database.password", "")
	// "require" by default; set DEEPRESEARCH_DATABASE_SSL_MODE=disable locally.
	v.SetDefault("database.name", "deep_research_service")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "deep-research")
	v.SetDefault("temporal.task_queue", "deep-research-tasks")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.deep_research_service")
	v.SetDefault("kafka.batch_timeout", "10ms")

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.timeout", "15m")
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.rate_limit_rps", 5.0)
	v.SetDefault("generation.rate_limit_burst", 10)
	v.SetDefault("generation.openai.model", "gpt-4o")
	v.SetDefault("generation.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("generation.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("generation.anthropic.base_url", "https://api.anthropic.com")

	v.SetDefault("research.wait_window", "120s")
	v.SetDefault("research.requeue_delay", "15s")
	v.SetDefault("research.search_api", "none")
	v.SetDefault("research.brief_max_chars", 500)
	v.SetDefault("research.document.store_max_chars", 50000)
	v.SetDefault("research.document.summary_max_chars", 20000)
	v.SetDefault("research.document.summary_max_tokens", 400)
	v.SetDefault("research.document.summary_fallback_chars", 1500)
	v.SetDefault("research.report.summary_max_chars", 12000)
	v.SetDefault("research.report.summary_max_tokens", 350)
	v.SetDefault("research.report.summary_fallback_chars", 1200)
	v.SetDefault("research.models.research", "")
	v.SetDefault("research.models.compression", "")
	v.SetDefault("research.models.final_report", "")
	v.SetDefault("research.models.summarization", "")
	v.SetDefault("research.models.cost", "")
	v.SetDefault("research.model_costs_json", "")

	v.SetDefault("storage.root", "data/uploads")
	v.SetDefault("storage.max_upload_bytes", int64(25<<20))
}

// Validate checks the loaded configuration for values that would make
// the service start in a broken state.
func (c *Config) Validate() error {
	if err := c.validateInfra(); err != nil {
		return err
	}
	if err := c.validateResearch(); err != nil {
		return err
	}
	return c.validateGeneration()
}

func (c *Config) validateInfra() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateResearch() error {
	if c.Research.WaitWindow < 0 {
		return fmt.Errorf("research wait_window must not be negative")
	}
	if c.Research.RequeueDelay <= 0 {
		return fmt.Errorf("research requeue_delay must be positive")
	}
	if c.Research.Document.StoreMaxChars <= 0 {
		return fmt.Errorf("research document store_max_chars must be positive")
	}
	if c.Research.Document.SummaryMaxChars > c.Research.Document.StoreMaxChars {
		return fmt.Errorf("research document summary_max_chars (%d) must not exceed store_max_chars (%d)",
			c.Research.Document.SummaryMaxChars, c.Research.Document.StoreMaxChars)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage max_upload_bytes must be positive")
	}
	return nil
}

// validateGeneration requires the configured provider's API key so a
// misdeployed worker fails at startup, not mid-run.
func (c *Config) validateGeneration() error {
	switch strings.ToLower(c.Generation.Provider) {
	case "openai":
		if c.Generation.OpenAI.APIKey == "" {
			return fmt.Errorf("generation provider %q requires DEEPRESEARCH_GENERATION_OPENAI_API_KEY to be set", c.Generation.Provider)
		}
	case "anthropic":
		if c.Generation.Anthropic.APIKey == "" {
			return fmt.Errorf("generation provider %q requires DEEPRESEARCH_GENERATION_ANTHROPIC_API_KEY to be set", c.Generation.Provider)
		}
	default:
		return fmt.Errorf("unsupported generation provider: %q", c.Generation.Provider)
	}
	return nil
}
