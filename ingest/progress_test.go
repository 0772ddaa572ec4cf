package ingest

import (
	"bytes"
	"sync"
	"testing"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_StartAllPending(t *testing.T) {
	r := NewReporter(nil, 10)
	r.Start(120)

	s := r.Snapshot()
	assert.Equal(t, 120, s.Total)
	assert.Equal(t, 120, s.Pending)
	assert.True(t, s.Consistent())
}

func TestReporter_RecordsMoveOutOfPending(t *testing.T) {
	r := NewReporter(nil, 10)
	r.Start(10)

	r.RecordSent(6)
	r.RecordFailed([]core.FailedDocument{{Reason: "bad"}})

	s := r.Snapshot()
	assert.Equal(t, 6, s.Sent)
	assert.Equal(t, 1, s.PermanentlyFailed)
	assert.Equal(t, 3, s.Pending)
	require.Len(t, s.Failures, 1)
	assert.True(t, s.Consistent())

	// Counts never exceed the total
	r.RecordSent(50)
	s = r.Snapshot()
	assert.Equal(t, 9, s.Sent)
	assert.Zero(t, s.Pending)
	assert.True(t, s.Consistent())
}

func TestReporter_IgnoresUpdatesBeforeStart(t *testing.T) {
	r := NewReporter(nil, 10)
	r.RecordSent(5)
	assert.Zero(t, r.Snapshot().Sent)
	assert.Zero(t, r.Elapsed())
}

func TestReporter_ConcurrentUpdates(t *testing.T) {
	r := NewReporter(nil, 7)
	r.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.DocumentsSent(1)
				r.DocumentsFailed([]core.FailedDocument{{Reason: "x"}})
				s := r.Snapshot()
				assert.True(t, s.Consistent())
			}
		}()
	}
	wg.Wait()

	s := r.Snapshot()
	assert.Equal(t, 500, s.Sent)
	assert.Equal(t, 500, s.PermanentlyFailed)
	assert.Zero(t, s.Pending)
	assert.Len(t, s.Failures, 500)
}

func TestReporter_Interrupt(t *testing.T) {
	r := NewReporter(nil, 10)
	r.Start(5)

	r.Interrupt("cancelled: interrupt")
	r.Interrupt("second reason")

	s := r.Snapshot()
	assert.Equal(t, "cancelled: interrupt", s.Interrupted)
	assert.False(t, s.Complete())
}

func TestReporter_Output(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, 5)
	r.Start(10)

	r.RecordSent(3)
	assert.Empty(t, buf.String(), "below interval")

	r.RecordSent(2)
	assert.Contains(t, buf.String(), "Progress: 5/10 sent, 5 pending, 0 failed (50.0%)")

	r.RecordSent(5)
	r.Finish()
	out := buf.String()
	assert.Contains(t, out, "Progress: 10/10 sent, 0 pending, 0 failed (100.0%)")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestReporter_SnapshotIsCopy(t *testing.T) {
	r := NewReporter(nil, 10)
	r.Start(2)
	r.RecordFailed([]core.FailedDocument{{Reason: "a"}})

	s := r.Snapshot()
	s.Failures[0].Reason = "changed"

	assert.Equal(t, "a", r.Snapshot().Failures[0].Reason)
}
