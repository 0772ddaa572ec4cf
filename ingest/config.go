package ingest

import (
	"fmt"
	"time"
)

// MaxRetriesLimit bounds Config.MaxRetries.
const MaxRetriesLimit = 30

// Config holds the tuning parameters of an ingestion run.
type Config struct {
	// BatchSize is the initial number of documents per upload call
	BatchSize int `yaml:"batch_size"`

	// MinBatchSize is the floor below which retries never shrink a batch
	MinBatchSize int `yaml:"min_batch_size"`

	// MaxRetries is how many times a failing document is resubmitted
	// before it is marked permanently failed
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the backoff unit; retry n waits RetryDelay * 2^n
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Workers is the number of batches submitted concurrently
	Workers int `yaml:"workers"`

	// ReportInterval is how often to print progress (number of documents)
	ReportInterval int `yaml:"report_interval"`

	// MaxFailures stops the run once more documents than this have
	// permanently failed. Zero means no limit.
	MaxFailures int `yaml:"max_failures"`

	// UploadTimeout bounds a single upload call. Zero means no bound.
	UploadTimeout time.Duration `yaml:"upload_timeout"`

	// ConnectAttempts is how many times opening the index session is tried
	ConnectAttempts int `yaml:"connect_attempts"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:       50,
		MinBatchSize:    10,
		MaxRetries:      5,
		RetryDelay:      1 * time.Second,
		Workers:         1,
		ReportInterval:  50,
		ConnectAttempts: 3,
	}
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1", ErrInvalidConfig)
	case c.MinBatchSize < 1:
		return fmt.Errorf("%w: minimum batch size must be at least 1", ErrInvalidConfig)
	case c.MinBatchSize > c.BatchSize:
		return fmt.Errorf("%w: minimum batch size %d exceeds batch size %d", ErrInvalidConfig, c.MinBatchSize, c.BatchSize)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	case c.MaxRetries > MaxRetriesLimit:
		return fmt.Errorf("%w: max retries %d exceeds %d", ErrInvalidConfig, c.MaxRetries, MaxRetriesLimit)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.ReportInterval < 1:
		return fmt.Errorf("%w: report interval must be at least 1", ErrInvalidConfig)
	case c.MaxFailures < 0:
		return fmt.Errorf("%w: max failures must not be negative", ErrInvalidConfig)
	case c.UploadTimeout < 0:
		return fmt.Errorf("%w: upload timeout must not be negative", ErrInvalidConfig)
	case c.ConnectAttempts < 1:
		return fmt.Errorf("%w: connect attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}
