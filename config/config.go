// Package config loads the wwss configuration from a YAML file and
// WWSS_* environment variables. Command-line flags are applied on top by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeffallen007/what-would-she-say/ai"
	"github.com/jeffallen007/what-would-she-say/ingest"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendBadger  = "badger"
	BackendChromem = "chromem"
	BackendMilvus  = "milvus"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration.
type Config struct {
	Backend    BackendConfig   `yaml:"backend"`
	Ingest     ingest.Config   `yaml:"ingest"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	Identity   IdentityConfig  `yaml:"identity"`
	Source     SourceConfig    `yaml:"source"`
	DeadLetter string          `yaml:"dead_letter"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// BackendConfig selects and locates the vector index.
type BackendConfig struct {
	// Type is one of badger, chromem or milvus
	Type string `yaml:"type"`

	// Path is the database directory for badger and chromem.
	// An empty path keeps chromem in memory.
	Path string `yaml:"path"`

	// MilvusAddress is the host:port of the Milvus server
	MilvusAddress string `yaml:"milvus_address"`

	// Dimension is the vector dimension used for Milvus collections
	// whose schema does not declare one
	Dimension int `yaml:"dimension"`
}

// EmbeddingConfig configures vector computation for documents that
// arrive without one.
type EmbeddingConfig struct {
	Enabled   bool `yaml:"enabled"`
	ai.Config `yaml:",inline"`
}

// IdentityConfig controls how document identities are derived.
type IdentityConfig struct {
	Namespace string `yaml:"namespace"`

	// Fields overrides the stable fields of the source
	Fields []string `yaml:"fields"`
}

// SourceConfig controls how source files are read.
type SourceConfig struct {
	// MetadataColumns are the CSV columns copied into metadata
	MetadataColumns []string `yaml:"metadata_columns"`

	// ChunkTokens splits documents into windows of this many tokens.
	// Zero disables chunking.
	ChunkTokens  int `yaml:"chunk_tokens"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// MetricsConfig controls the Prometheus scrape server.
type MetricsConfig struct {
	// Addr is the listen address, for example ":9090". Empty disables it.
	Addr string `yaml:"addr"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Type:      BackendBadger,
			Path:      "./wwss.db",
			Dimension: 1536,
		},
		Ingest: *ingest.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Config: *ai.DefaultConfig(),
		},
		Identity: IdentityConfig{
			Namespace: "wwss",
		},
		Source: SourceConfig{
			MetadataColumns: []string{"character"},
			ChunkOverlap:    50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case BackendBadger:
		if c.Backend.Path == "" {
			return fmt.Errorf("%w: badger backend needs a database path", ErrInvalid)
		}
	case BackendChromem:
	case BackendMilvus:
		if c.Backend.MilvusAddress == "" {
			return fmt.Errorf("%w: milvus backend needs an address", ErrInvalid)
		}
		if c.Backend.Dimension < 1 {
			return fmt.Errorf("%w: milvus dimension must be positive", ErrInvalid)
		}
		if !c.Embedding.Enabled {
			return fmt.Errorf("%w: milvus backend needs embedding enabled", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend.Type)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Embedding.Enabled {
		if err := c.Embedding.Config.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if c.Source.ChunkTokens < 0 || c.Source.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk sizes must not be negative", ErrInvalid)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides reads WWSS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("WWSS_BACKEND"); v != "" {
		cfg.Backend.Type = v
	}
	if v := os.Getenv("WWSS_DB"); v != "" {
		cfg.Backend.Path = v
	}
	if v := os.Getenv("WWSS_MILVUS_ADDRESS"); v != "" {
		cfg.Backend.MilvusAddress = v
	}
	if v := os.Getenv("WWSS_EMBEDDING_HOST"); v != "" {
		cfg.Embedding.EmbeddingHost = v
		cfg.Embedding.Enabled = true
	}
	if v := os.Getenv("WWSS_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.EmbeddingModel = v
	}
	if v := os.Getenv("WWSS_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("WWSS_NAMESPACE"); v != "" {
		cfg.Identity.Namespace = v
	}
	if v := os.Getenv("WWSS_ID_FIELDS"); v != "" {
		cfg.Identity.Fields = SplitList(v)
	}
	if v := os.Getenv("WWSS_DEAD_LETTER"); v != "" {
		cfg.DeadLetter = v
	}
	if v := os.Getenv("WWSS_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("WWSS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WWSS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"WWSS_BATCH_SIZE", &cfg.Ingest.BatchSize},
		{"WWSS_MIN_BATCH_SIZE", &cfg.Ingest.MinBatchSize},
		{"WWSS_MAX_RETRIES", &cfg.Ingest.MaxRetries},
		{"WWSS_WORKERS", &cfg.Ingest.Workers},
		{"WWSS_MAX_FAILURES", &cfg.Ingest.MaxFailures},
		{"WWSS_CHUNK_TOKENS", &cfg.Source.ChunkTokens},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("WWSS_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WWSS_RETRY_DELAY: %w", err)
		}
		cfg.Ingest.RetryDelay = d
	}
	return nil
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
