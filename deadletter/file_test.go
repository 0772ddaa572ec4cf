package deadletter

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedDocs() []core.FailedDocument {
	return []core.FailedDocument{
		{
			ID:       core.ID(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")),
			Document: core.Document{Content: "Well, hey there.", Metadata: core.Metadata{"character": "Dolly", "row": 3}},
			Reason:   "invalid vector",
			Attempts: 6,
		},
		{
			Document: core.Document{Content: "", Metadata: core.Metadata{"row": 4}},
			Reason:   "content cannot be empty",
		},
	}
}

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		records = append(records, r)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestFileSink_Publish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "failed.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Publish(context.Background(), failedDocs()))
	require.NoError(t, sink.Close())

	records := readRecords(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", records[0].ID)
	assert.Equal(t, "invalid vector", records[0].Reason)
	assert.Equal(t, 6, records[0].Attempts)
	assert.Equal(t, "Dolly", records[0].Metadata["character"])
	assert.Empty(t, records[1].ID)
	assert.Zero(t, records[1].Attempts)
}

func TestFileSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.jsonl")

	for range 2 {
		sink, err := NewFileSink(path)
		require.NoError(t, err)
		require.NoError(t, sink.Publish(context.Background(), failedDocs()[:1]))
		require.NoError(t, sink.Close())
	}

	assert.Len(t, readRecords(t, path), 2)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.jsonl")
	sink, err := Open(path)
	require.NoError(t, err)
	assert.IsType(t, &FileSink{}, sink)
	require.NoError(t, sink.Close())

	sink, err = Open("kafka://localhost:9092,localhost:9093/wwss-failed")
	require.NoError(t, err)
	assert.IsType(t, &KafkaSink{}, sink)
	require.NoError(t, sink.Close())

	for _, target := range []string{"", "kafka://", "kafka://localhost:9092", "kafka:///topic"} {
		_, err := Open(target)
		assert.ErrorIs(t, err, ErrInvalidTarget, target)
	}
}
