package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs the CLI without exiting the process and returns what it
// printed on stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"wwss"}, args...))
	return stdout.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var coder cli.ExitCoder
	require.True(t, errors.As(err, &coder), "expected an exit error, got %v", err)
	return coder.ExitCode()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const quotesCSV = "character,line\nDolly,Hello\nTruvy,Hi there\nDolly,How are you\n"

func TestIngestCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	csv := writeFile(t, "quotes.csv", quotesCSV)

	_, err := runApp(t, "--db", db, "create-collection", "Quotes")
	require.NoError(t, err)

	out, err := runApp(t, "--db", db, "ingest", csv, "Quotes")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingestion summary for Quotes")
	assert.Contains(t, out, "sent:               3")

	// Re-running replaces documents instead of duplicating them
	_, err = runApp(t, "--db", db, "ingest", csv, "Quotes")
	require.NoError(t, err)

	out, err = runApp(t, "--db", db, "count", "Quotes")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))
}

func TestIngestCommand_FatalErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	csv := writeFile(t, "quotes.csv", quotesCSV)

	t.Run("missing collection", func(t *testing.T) {
		_, err := runApp(t, "--db", db, "ingest", csv, "Missing")
		assert.Equal(t, exitFatal, exitCode(t, err))
		assert.Contains(t, err.Error(), "collection not found")
	})

	t.Run("unsupported source", func(t *testing.T) {
		doc := writeFile(t, "quotes.docx", "x")
		_, err := runApp(t, "--db", db, "ingest", doc, "Quotes")
		assert.Equal(t, exitFatal, exitCode(t, err))
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := runApp(t, "--db", db, "ingest", filepath.Join(t.TempDir(), "nope.csv"), "Quotes")
		assert.Equal(t, exitFatal, exitCode(t, err))
	})

	t.Run("wrong arguments", func(t *testing.T) {
		_, err := runApp(t, "--db", db, "ingest", csv)
		assert.Equal(t, exitFatal, exitCode(t, err))
	})

	t.Run("invalid tuning", func(t *testing.T) {
		_, err := runApp(t, "--db", db, "ingest", "--batch-size", "0", csv, "Quotes")
		assert.Equal(t, exitFatal, exitCode(t, err))
	})

	t.Run("too many retries", func(t *testing.T) {
		_, err := runApp(t, "--db", db, "ingest", "--max-retries", "70", csv, "Quotes")
		assert.Equal(t, exitFatal, exitCode(t, err))
		assert.Contains(t, err.Error(), "max retries 70 exceeds 30")
	})
}

func TestIngestCommand_PermanentFailures(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	csv := writeFile(t, "quotes.csv", quotesCSV)
	schema := writeFile(t, "schema.json", `{"class": "Quotes", "properties": [{"name": "character", "dataType": ["text"]}]}`)
	deadLetter := filepath.Join(t.TempDir(), "failed.jsonl")

	_, err := runApp(t, "--db", db, "create-collection", "--schema", schema, "Quotes")
	require.NoError(t, err)

	out, err := runApp(t, "--db", db, "--dead-letter", deadLetter,
		"ingest", "--max-retries", "1", "--retry-delay", "1ms", csv, "Quotes")
	assert.Equal(t, exitIncomplete, exitCode(t, err))
	assert.Contains(t, out, "permanently failed: 3")
	assert.Contains(t, out, "attempts=2")
	assert.Contains(t, out, "is not declared")

	data, err := os.ReadFile(deadLetter)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestCreateCollectionCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := runApp(t, "--db", db, "create-collection", "Quotes")
	require.NoError(t, err)
	assert.Contains(t, out, "Created collection Quotes")

	_, err = runApp(t, "--db", db, "create-collection", "Quotes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--recreate")

	_, err = runApp(t, "--db", db, "create-collection", "--recreate", "Quotes")
	require.NoError(t, err)

	_, err = runApp(t, "--db", db, "create-collection", "--schema", filepath.Join(t.TempDir(), "missing.json"), "Other")
	assert.Error(t, err)
}

func TestDeleteCollectionCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	_, err := runApp(t, "--db", db, "create-collection", "Quotes")
	require.NoError(t, err)

	out, err := runApp(t, "--db", db, "delete-collection", "Quotes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted collection Quotes")

	_, err = runApp(t, "--db", db, "count", "Quotes")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	csv := writeFile(t, "quotes.csv", quotesCSV)
	output := filepath.Join(t.TempDir(), "export.json")

	_, err := runApp(t, "--db", db, "create-collection", "Quotes")
	require.NoError(t, err)
	_, err = runApp(t, "--db", db, "ingest", csv, "Quotes")
	require.NoError(t, err)

	_, err = runApp(t, "--db", db, "export", "--output", output, "Quotes")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var exported exportFile
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Len(t, exported.IDs, 3)
	assert.ElementsMatch(t, []string{"Hello", "Hi there", "How are you"}, exported.Texts)
	assert.Len(t, exported.Metadata, 3)
	assert.Len(t, exported.Embeddings, 3)

	out, err := runApp(t, "--db", db, "export", "Quotes")
	require.NoError(t, err)
	assert.Contains(t, out, `"ids"`)
}

func TestCollectionCommands_RequireName(t *testing.T) {
	for _, cmd := range []string{"create-collection", "delete-collection", "count", "export"} {
		_, err := runApp(t, "--db", filepath.Join(t.TempDir(), "db"), cmd)
		require.Error(t, err, cmd)
		assert.Contains(t, err.Error(), "usage", cmd)
	}
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				_, err := runApp(t, "--log-level", level, "--db", filepath.Join(t.TempDir(), "db"), "create-collection", "Quotes")
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := runApp(t, "--log-level", "invalid", "count", "Quotes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("json format", func(t *testing.T) {
		_, err := runApp(t, "--log-format", "json", "--db", filepath.Join(t.TempDir(), "db"), "create-collection", "Quotes")
		require.NoError(t, err)
	})

	t.Run("config file", func(t *testing.T) {
		db := filepath.Join(t.TempDir(), "db")
		cfg := writeFile(t, "wwss.yaml", "backend:\n  path: "+db+"\nlogging:\n  level: debug\n")
		_, err := runApp(t, "--config", cfg, "create-collection", "Quotes")
		require.NoError(t, err)
		assert.DirExists(t, db)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := runApp(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "count", "Quotes")
		assert.Error(t, err)
	})
}
