package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read for the search engine connector.
const (
	EnvElasticsearchURL   = "ELASTICSEARCH_URL"
	EnvElasticsearchIndex = "ELASTICSEARCH_INDEX"
)

// Connector defaults.
const (
	DefaultElasticsearchURL = "http://localhost:9200"
	DefaultIndex            = "cv-transcriptions"
)

// Config holds the cvsearch configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Cache         CacheConfig         `yaml:"cache"`
	Search        SearchConfig        `yaml:"search"`
	Auth          AuthConfig          `yaml:"auth"`
	Indexing      IndexingConfig      `yaml:"indexing"`
	ASR           ASRConfig           `yaml:"asr"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ElasticsearchConfig holds the connector settings.
type ElasticsearchConfig struct {
	URL              string `yaml:"url"`
	Index            string `yaml:"index"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	MaxRetries       int    `yaml:"max_retries"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds the optional result cache settings. Empty Addrs disables the cache.
type CacheConfig struct {
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	TTLSec    int      `yaml:"ttl_sec"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// SearchConfig holds the query shape and the result card layout.
type SearchConfig struct {
	DefaultPageSize int            `yaml:"default_page_size"`
	MaxPageSize     int            `yaml:"max_page_size"`
	Fields          []FieldConfig  `yaml:"fields"`
	Template        TemplateConfig `yaml:"template"`
}

// FieldConfig declares one index field and how it takes part in queries.
type FieldConfig struct {
	Name   string  `yaml:"name"`
	Search bool    `yaml:"search"`
	Result bool    `yaml:"result"`
	Boost  float64 `yaml:"boost"`
}

// TemplateConfig maps result fields to the rendered card.
type TemplateConfig struct {
	Title  string        `yaml:"title"`
	Blocks []BlockConfig `yaml:"blocks"`
}

// BlockConfig is one labelled line on the result card.
type BlockConfig struct {
	Field  string `yaml:"field"`
	Label  string `yaml:"label"`
	Suffix string `yaml:"suffix"`
}

// IndexingConfig holds bulk load settings for cvctl index.
type IndexingConfig struct {
	CSVPath       string `yaml:"csv_path"`
	Shards        int    `yaml:"shards"`
	Replicas      *int   `yaml:"replicas"` // nil means 1; 0 suits a single-node cluster
	Workers       int    `yaml:"workers"`
	FlushBytes    int    `yaml:"flush_bytes"`
	FlushInterval int    `yaml:"flush_interval_sec"`
}

// ASRConfig holds transcription backend and job settings for cvctl transcribe.
type ASRConfig struct {
	Backend         string `yaml:"backend"` // asr (default) | openai
	Host            string `yaml:"host"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	DataRoot        string `yaml:"data_root"`
	InputCSV        string `yaml:"input_csv"`
	OutputCSV       string `yaml:"output_csv"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
	IntervalMillis  int    `yaml:"interval_ms"`
	Workers         int    `yaml:"workers"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadOrDefault is Load, falling back to Default when config/<env>.yaml does not exist.
func LoadOrDefault(env string) (Config, error) {
	cfg, err := Load(env)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ReplicaCount returns the configured replica count.
func (c IndexingConfig) ReplicaCount() int {
	if c.Replicas == nil {
		return 1
	}
	return *c.Replicas
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expanding ${VAR} references, and applies defaults.
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

// Default returns a configuration built only from defaults and the connector env vars.
// Used by cvctl when no config file is present.
func Default() Config {
	var cfg Config
	cfg.HTTP.Port = 8080
	cfg.ApplyDefaults()
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Elasticsearch.URL == "" {
		c.Elasticsearch.URL = envOr(EnvElasticsearchURL, DefaultElasticsearchURL)
	}
	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = envOr(EnvElasticsearchIndex, DefaultIndex)
	}
	if c.Elasticsearch.MaxRetries <= 0 {
		c.Elasticsearch.MaxRetries = 3
	}
	if c.Elasticsearch.ReadinessTimeout <= 0 {
		c.Elasticsearch.ReadinessTimeout = 10
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "cvsearch:"
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Indexing.CSVPath == "" {
		c.Indexing.CSVPath = filepath.Join("asr", "cv-valid-dev-updated.csv")
	}
	if c.Indexing.Shards <= 0 {
		c.Indexing.Shards = 2
	}
	if c.Indexing.Replicas == nil || *c.Indexing.Replicas < 0 {
		one := 1
		c.Indexing.Replicas = &one
	}
	if c.Indexing.Workers <= 0 {
		c.Indexing.Workers = 4
	}
	if c.Indexing.FlushBytes <= 0 {
		c.Indexing.FlushBytes = 5 << 20
	}
	if c.Indexing.FlushInterval <= 0 {
		c.Indexing.FlushInterval = 30
	}
	if c.ASR.Backend == "" {
		c.ASR.Backend = "asr"
	}
	if c.ASR.Host == "" {
		c.ASR.Host = "http://localhost:8001"
	}
	if c.ASR.Model == "" {
		c.ASR.Model = "whisper-1"
	}
	if c.ASR.DataRoot == "" {
		c.ASR.DataRoot = "."
	}
	if c.ASR.InputCSV == "" {
		c.ASR.InputCSV = filepath.Join("asr", "cv-valid-dev.csv")
	}
	if c.ASR.OutputCSV == "" {
		c.ASR.OutputCSV = filepath.Join("asr", "cv-valid-dev-updated.csv")
	}
	if c.ASR.CheckpointEvery <= 0 {
		c.ASR.CheckpointEvery = 10
	}
	if c.ASR.IntervalMillis <= 0 {
		c.ASR.IntervalMillis = 500
	}
	if c.ASR.Workers <= 0 {
		c.ASR.Workers = 1
	}
	if c.ASR.TimeoutSec <= 0 {
		c.ASR.TimeoutSec = 120
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Elasticsearch.URL == "" {
		return fmt.Errorf("elasticsearch.url is required")
	}
	if c.Elasticsearch.Index == "" {
		return fmt.Errorf("elasticsearch.index is required")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf(
			"search.default_page_size (%d) must not exceed search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize,
		)
	}
	switch c.ASR.Backend {
	case "asr", "openai":
		// ok
	default:
		return fmt.Errorf("asr.backend must be \"asr\" or \"openai\", got %q", c.ASR.Backend)
	}
	return nil
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

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
