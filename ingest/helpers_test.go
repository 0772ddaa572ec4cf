package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/identity"
	"github.com/jeffallen007/what-would-she-say/source"
)

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// recordingObserver records events and can run a hook after each upload.
type recordingObserver struct {
	NopObserver

	mu          sync.Mutex
	uploads     int
	retrySizes  []int
	sizeChanges [][2]int
	onUpload    func(n int)
}

func (o *recordingObserver) BatchUploaded(size, failed int, elapsed time.Duration) {
	o.mu.Lock()
	o.uploads++
	n := o.uploads
	hook := o.onUpload
	o.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

func (o *recordingObserver) RetryScheduled(attempt, pending int, delay time.Duration, size int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retrySizes = append(o.retrySizes, size)
}

func (o *recordingObserver) BatchSizeChanged(from, to int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sizeChanges = append(o.sizeChanges, [2]int{from, to})
}

// stubUploader returns outcomes from a function and records chunk sizes.
type stubUploader struct {
	mu     sync.Mutex
	sizes  []int
	upload func(batch []*core.Object) []core.Outcome
}

func (u *stubUploader) Upload(ctx context.Context, batch []*core.Object) []core.Outcome {
	u.mu.Lock()
	u.sizes = append(u.sizes, len(batch))
	u.mu.Unlock()
	if u.upload == nil {
		return succeedAll(batch)
	}
	return u.upload(batch)
}

func (u *stubUploader) Sizes() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]int(nil), u.sizes...)
}

func succeedAll(batch []*core.Object) []core.Outcome {
	outcomes := make([]core.Outcome, len(batch))
	for i := range outcomes {
		outcomes[i] = core.Succeeded()
	}
	return outcomes
}

func rowOf(obj *core.Object) int {
	return obj.Document.Metadata["row"].(int)
}

// testDocuments returns n documents with source and row metadata.
func testDocuments(n int) []core.Document {
	docs := make([]core.Document, n)
	for i := range docs {
		docs[i] = core.Document{
			Content:  fmt.Sprintf("line %d", i+1),
			Metadata: core.Metadata{"source": "test.csv", "row": i},
		}
	}
	return docs
}

func testSource(n int) *source.Slice {
	return &source.Slice{Label: "test.csv", Fields: []string{"source", "row"}, Docs: testDocuments(n)}
}

func testObjects(n int) []*core.Object {
	assigner := testAssigner()
	docs := testDocuments(n)
	objects := make([]*core.Object, n)
	for i, doc := range docs {
		id, err := assigner.Assign(doc)
		if err != nil {
			panic(err)
		}
		objects[i] = core.NewObject(id, doc)
	}
	return objects
}

func testAssigner() *identity.Assigner {
	a, err := identity.NewAssigner("test", "source", "row")
	if err != nil {
		panic(err)
	}
	return a
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}
