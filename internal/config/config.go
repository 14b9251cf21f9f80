package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tripwise service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Sources    SourcesConfig    `yaml:"sources"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Search     SearchConfig     `yaml:"search"`
	Feedback   FeedbackConfig   `yaml:"feedback"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds content store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding provider settings. An empty APIKey puts the service in demo mode.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	BatchConcurrency    int    `yaml:"batch_concurrency"`
	BatchDelayMs        int    `yaml:"batch_delay_ms"`
	StoreChunkSize      int    `yaml:"store_chunk_size"`
	StoreChunkDelayMs   int    `yaml:"store_chunk_delay_ms"`
	CacheTTLHours       int    `yaml:"cache_ttl_hours"`
}

// GenerationConfig holds the ordered AI provider chain.
type GenerationConfig struct {
	Primary   ChatProviderConfig `yaml:"primary"`
	Secondary ChatProviderConfig `yaml:"secondary"`
}

// ChatProviderConfig holds one OpenAI-compatible chat endpoint.
type ChatProviderConfig struct {
	Name       string `yaml:"name"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Enabled reports whether the provider has a credential.
func (c ChatProviderConfig) Enabled() bool { return c.APIKey != "" }

// SourcesConfig holds open data source settings.
type SourcesConfig struct {
	UserAgent         string  `yaml:"user_agent"`
	WikipediaURL      string  `yaml:"wikipedia_url"`
	NominatimURL      string  `yaml:"nominatim_url"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	Enabled              bool     `yaml:"enabled"`
	IntervalHours        int      `yaml:"interval_hours"`
	UpdateBatchSize      int      `yaml:"update_batch_size"`
	ExpansionCount       int      `yaml:"expansion_count"`
	ItemDelayMs          int      `yaml:"item_delay_ms"`
	QualityThreshold     float64  `yaml:"quality_threshold"`
	StaleAfterDays       int      `yaml:"stale_after_days"`
	PriorityDestinations []string `yaml:"priority_destinations"` // "City, Country"
}

// SearchConfig holds search engine settings.
type SearchConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Materialize         int     `yaml:"materialize"`
	TimeoutSec          int     `yaml:"timeout_sec"`
}

// FeedbackConfig holds the sqlite store for feedback and run history.
type FeedbackConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML with ${VAR} substitution, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "tripwise:"
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchConcurrency <= 0 {
		c.Embedding.BatchConcurrency = 5
	}
	if c.Embedding.BatchDelayMs <= 0 {
		c.Embedding.BatchDelayMs = 200
	}
	if c.Embedding.StoreChunkSize <= 0 {
		c.Embedding.StoreChunkSize = 3
	}
	if c.Embedding.StoreChunkDelayMs <= 0 {
		c.Embedding.StoreChunkDelayMs = 500
	}
	if c.Embedding.CacheTTLHours <= 0 {
		c.Embedding.CacheTTLHours = 24 * 7
	}

	applyChatDefaults(&c.Generation.Primary, "primary", "gpt-4o-mini")
	applyChatDefaults(&c.Generation.Secondary, "secondary", "gpt-4o-mini")

	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = "tripwise/1.0 (travel knowledge pipeline)"
	}
	if c.Sources.WikipediaURL == "" {
		c.Sources.WikipediaURL = "https://en.wikipedia.org/api/rest_v1"
	}
	if c.Sources.NominatimURL == "" {
		c.Sources.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	if c.Sources.TimeoutSec <= 0 {
		c.Sources.TimeoutSec = 8
	}
	if c.Sources.RequestsPerSecond <= 0 {
		c.Sources.RequestsPerSecond = 1
	}
	if c.Sources.MaxRetries < 0 {
		c.Sources.MaxRetries = 0
	}

	if c.Pipeline.IntervalHours <= 0 {
		c.Pipeline.IntervalHours = 24
	}
	if c.Pipeline.UpdateBatchSize <= 0 {
		c.Pipeline.UpdateBatchSize = 10
	}
	if c.Pipeline.ExpansionCount <= 0 {
		c.Pipeline.ExpansionCount = 5
	}
	if c.Pipeline.ItemDelayMs <= 0 {
		c.Pipeline.ItemDelayMs = 2000
	}
	if c.Pipeline.QualityThreshold <= 0 {
		c.Pipeline.QualityThreshold = 0.6
	}
	if c.Pipeline.StaleAfterDays <= 0 {
		c.Pipeline.StaleAfterDays = 30
	}

	if c.Search.TopK <= 0 {
		c.Search.TopK = 10
	}
	if c.Search.SimilarityThreshold <= 0 {
		c.Search.SimilarityThreshold = 0.3
	}
	if c.Search.Materialize <= 0 {
		c.Search.Materialize = 5
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 30
	}

	if c.Feedback.Path == "" {
		c.Feedback.Path = "tripwise.db"
	}
}

func applyChatDefaults(p *ChatProviderConfig, name, model string) {
	if p.Name == "" {
		p.Name = name
	}
	if p.Model == "" {
		p.Model = model
	}
	if p.TimeoutSec <= 0 {
		p.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Pipeline.QualityThreshold > 1 {
		return fmt.Errorf("pipeline.quality_threshold must be in (0,1], got %g", c.Pipeline.QualityThreshold)
	}
	if c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be in (0,1], got %g", c.Search.SimilarityThreshold)
	}
	for _, d := range c.Pipeline.PriorityDestinations {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("pipeline.priority_destinations must not contain empty entries")
		}
	}
	return nil
}

// DemoMode reports whether no embedding credential is configured.
func (c *Config) DemoMode() bool { return c.Embedding.APIKey == "" }

// Interval returns the pipeline schedule interval.
func (c *PipelineConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// ItemDelay returns the delay between pipeline items.
func (c *PipelineConfig) ItemDelay() time.Duration {
	return time.Duration(c.ItemDelayMs) * time.Millisecond
}

// StaleAfter returns the age after which a record counts as stale.
func (c *PipelineConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterDays) * 24 * time.Hour
}

// Timeout returns the per-call source timeout.
func (c *SourcesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
