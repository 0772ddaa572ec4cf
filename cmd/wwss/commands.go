package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	wwss "github.com/jeffallen007/what-would-she-say"
	"github.com/jeffallen007/what-would-she-say/config"
	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
	"github.com/urfave/cli/v2"
)

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: wwss ingest <source-path> <collection>", exitFatal)
	}
	path, collection := c.Args().Get(0), c.Args().Get(1)

	cfg, err := configFrom(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}
	applyIngestFlags(c, cfg)

	db, err := wwss.NewDatabase(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}
	defer db.Close()

	shutdown, err := db.StartMetrics()
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}
	defer shutdown(context.Background())

	src, err := db.OpenSource(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot open source: %v", err), exitFatal)
	}

	pipeline, err := db.NewIngestionPipeline(src, c.App.ErrWriter)
	if err != nil {
		return cli.Exit(err.Error(), exitFatal)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Source: %s\n", src.Name())
	fmt.Fprintf(c.App.ErrWriter, "Backend: %s\n", cfg.Backend.Type)
	fmt.Fprintf(c.App.ErrWriter, "Collection: %s\n", collection)
	fmt.Fprintln(c.App.ErrWriter)

	state, err := pipeline.Run(ctx, src, collection)
	if state == nil {
		return cli.Exit(fmt.Sprintf("ingest failed: %v", err), exitFatal)
	}

	printSummary(c.App.Writer, collection, state)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ingest stopped: %v", err), exitIncomplete)
	}
	if !state.Complete() {
		return cli.Exit(fmt.Sprintf("%d of %d documents were not sent", state.Pending+state.PermanentlyFailed, state.Total), exitIncomplete)
	}
	return nil
}

func applyIngestFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("batch-size") {
		cfg.Ingest.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("min-batch-size") {
		cfg.Ingest.MinBatchSize = c.Int("min-batch-size")
	}
	if c.IsSet("max-retries") {
		cfg.Ingest.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Ingest.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("workers") {
		cfg.Ingest.Workers = c.Int("workers")
	}
	if c.IsSet("max-failures") {
		cfg.Ingest.MaxFailures = c.Int("max-failures")
	}
	if c.IsSet("report-interval") {
		cfg.Ingest.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("chunk-tokens") {
		cfg.Source.ChunkTokens = c.Int("chunk-tokens")
	}
	if c.IsSet("metadata-columns") {
		cfg.Source.MetadataColumns = config.SplitList(c.String("metadata-columns"))
	}
}

func printSummary(w io.Writer, collection string, state *core.PipelineState) {
	fmt.Fprintf(w, "Ingestion summary for %s\n", collection)
	fmt.Fprintf(w, "  total:              %d\n", state.Total)
	fmt.Fprintf(w, "  sent:               %d\n", state.Sent)
	fmt.Fprintf(w, "  pending:            %d\n", state.Pending)
	fmt.Fprintf(w, "  permanently failed: %d\n", state.PermanentlyFailed)
	if state.Interrupted != "" {
		fmt.Fprintf(w, "  interrupted:        %s\n", state.Interrupted)
	}
	if len(state.Failures) == 0 {
		return
	}

	fmt.Fprintln(w, "Failed documents:")
	for _, f := range state.Failures {
		id := "(no id)"
		if !f.ID.IsZero() {
			id = f.ID.String()
		}
		fmt.Fprintf(w, "  %s attempts=%d: %s\n", id, f.Attempts, f.Reason)
	}
}

// openDatabase builds the database for the single-collection commands.
func openDatabase(c *cli.Context) (*wwss.Database, string, error) {
	if c.NArg() != 1 {
		return nil, "", fmt.Errorf("usage: wwss %s <collection>", c.Command.Name)
	}
	cfg, err := configFrom(c)
	if err != nil {
		return nil, "", err
	}
	db, err := wwss.NewDatabase(cfg)
	if err != nil {
		return nil, "", err
	}
	return db, c.Args().First(), nil
}

func createCollectionCommand(c *cli.Context) error {
	db, name, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	schema := storage.NewCollectionSchema(name)
	if path := c.String("schema"); path != "" {
		schema, err = storage.LoadSchema(path)
		if err != nil {
			return err
		}
		schema.Name = name
	}

	if err := db.CreateCollection(c.Context, schema, c.Bool("recreate")); err != nil {
		if errors.Is(err, storage.ErrCollectionExists) {
			return fmt.Errorf("collection %s already exists (use --recreate to replace it)", name)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Created collection %s\n", name)
	return nil
}

func deleteCollectionCommand(c *cli.Context) error {
	db, name, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteCollection(c.Context, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted collection %s\n", name)
	return nil
}

func countCommand(c *cli.Context) error {
	db, name, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Count(c.Context, name)
	if err != nil {
		return fmt.Errorf("failed to count collection: %w", err)
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

// exportFile is the layout written by the export command.
type exportFile struct {
	IDs        []string        `json:"ids"`
	Texts      []string        `json:"texts"`
	Metadata   []core.Metadata `json:"metadata"`
	Embeddings [][]float32     `json:"embeddings"`
}

func exportCommand(c *cli.Context) error {
	db, name, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	out := exportFile{
		IDs:        []string{},
		Texts:      []string{},
		Metadata:   []core.Metadata{},
		Embeddings: [][]float32{},
	}
	err = db.Export(c.Context, name, func(obj *storage.StoredObject) error {
		out.IDs = append(out.IDs, obj.ID.String())
		out.Texts = append(out.Texts, obj.Content)
		out.Metadata = append(out.Metadata, obj.Metadata)
		out.Embeddings = append(out.Embeddings, obj.Vector)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to export collection: %w", err)
	}

	w := c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if w != c.App.Writer {
		fmt.Fprintf(c.App.ErrWriter, "Exported %d documents to %s\n", len(out.IDs), c.String("output"))
	}
	return nil
}
