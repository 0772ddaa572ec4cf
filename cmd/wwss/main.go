package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jeffallen007/what-would-she-say/config"
	"github.com/urfave/cli/v2"
)

// Exit codes of the ingest command.
const (
	exitIncomplete = 1
	exitFatal      = 2
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "wwss",
		Usage:    "Load quote and dialogue sources into a vector index",
		Metadata: map[string]any{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Vector index backend (badger, chromem, milvus)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database directory (badger, chromem)",
			},
			&cli.StringFlag{
				Name:  "milvus-address",
				Usage: "Milvus server address (host:port)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL; enables embedding documents without vectors",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "Namespace mixed into every document identity",
			},
			&cli.StringFlag{
				Name:  "id-fields",
				Usage: "Comma separated metadata fields that identify a document",
			},
			&cli.StringFlag{
				Name:  "dead-letter",
				Usage: "Write permanently failed documents to a file or kafka://brokers/topic",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Upload every document of a source file into a collection",
				ArgsUsage: "<source-path> <collection>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents per upload call",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "min-batch-size",
						Usage: "Smallest batch size retries shrink to",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed documents",
						Value: 5,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of batches uploaded concurrently",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "max-failures",
						Usage: "Stop after more than this many permanent failures (0 = no limit)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "chunk-tokens",
						Usage: "Split documents into windows of this many tokens (0 = off)",
					},
					&cli.StringFlag{
						Name:  "metadata-columns",
						Usage: "Comma separated CSV columns copied into metadata",
					},
				},
			},
			{
				Name:      "create-collection",
				Usage:     "Create a collection",
				ArgsUsage: "<collection>",
				Action:    createCollectionCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "schema",
						Usage: "JSON schema file with class, properties and vectorDimension",
					},
					&cli.BoolFlag{
						Name:  "recreate",
						Usage: "Drop the collection first if it exists",
					},
				},
			},
			{
				Name:      "delete-collection",
				Usage:     "Delete a collection and everything in it",
				ArgsUsage: "<collection>",
				Action:    deleteCollectionCommand,
			},
			{
				Name:      "count",
				Usage:     "Print the number of documents in a collection",
				ArgsUsage: "<collection>",
				Action:    countCommand,
			},
			{
				Name:      "export",
				Usage:     "Export a collection as JSON (ids, texts, metadata, embeddings)",
				ArgsUsage: "<collection>",
				Action:    exportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default stdout)",
					},
				},
			},
		},
	}
}

// setupLogger loads the configuration, applies the global flags to it and
// installs the default logger. Commands read the result with configFrom.
func setupLogger(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Get log level and normalize to lowercase
	levelStr := strings.ToLower(cfg.Logging.Level)

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(newHandler(c.App.ErrWriter, strings.ToLower(cfg.Logging.Format), level))
	slog.SetDefault(logger)

	c.App.Metadata[configKey] = cfg
	return nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// loadConfig reads the config file and environment, then applies any global
// flag that was set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("log-level") || cfg.Logging.Level == "" {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") || cfg.Logging.Format == "" {
		cfg.Logging.Format = c.String("log-format")
	}
	if c.IsSet("backend") {
		cfg.Backend.Type = c.String("backend")
	}
	if c.IsSet("db") {
		cfg.Backend.Path = c.String("db")
	}
	if c.IsSet("milvus-address") {
		cfg.Backend.MilvusAddress = c.String("milvus-address")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Enabled = true
		cfg.Embedding.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("namespace") {
		cfg.Identity.Namespace = c.String("namespace")
	}
	if c.IsSet("id-fields") {
		cfg.Identity.Fields = config.SplitList(c.String("id-fields"))
	}
	if c.IsSet("dead-letter") {
		cfg.DeadLetter = c.String("dead-letter")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	return cfg, nil
}

// configFrom returns the configuration prepared by setupLogger.
func configFrom(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return loadConfig(c)
	}
	return cfg, nil
}
