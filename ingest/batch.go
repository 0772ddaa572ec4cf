package ingest

import (
	"iter"
	"sync/atomic"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Builder groups a lazy sequence of objects into batches. It pulls from the
// sequence only when a batch is requested, so at most one batch is held in
// memory. The batch size can be shrunk at any time, also from other goroutines.
type Builder struct {
	next func() (*core.Object, bool)
	stop func()
	size atomic.Int64
	done bool
}

// NewBuilder creates a builder over seq with the given initial batch size.
func NewBuilder(seq iter.Seq[*core.Object], size int) *Builder {
	next, stop := iter.Pull(seq)
	b := &Builder{next: next, stop: stop}
	b.size.Store(int64(max(size, 1)))
	return b
}

// Size returns the current batch size.
func (b *Builder) Size() int {
	return int(b.size.Load())
}

// Shrink lowers the batch size to size. It never raises it and never goes below 1.
func (b *Builder) Shrink(size int) {
	size = max(size, 1)
	for {
		cur := b.size.Load()
		if int64(size) >= cur {
			return
		}
		if b.size.CompareAndSwap(cur, int64(size)) {
			return
		}
	}
}

// Next returns the next batch. The batch is never empty and never larger than
// the current size. ok is false once the sequence is exhausted.
// Next must not be called concurrently.
func (b *Builder) Next() (batch []*core.Object, ok bool) {
	if b.done {
		return nil, false
	}
	size := b.Size()
	batch = make([]*core.Object, 0, size)
	for len(batch) < size {
		obj, more := b.next()
		if !more {
			b.done = true
			break
		}
		batch = append(batch, obj)
	}
	return batch, len(batch) > 0
}

// Close stops the underlying sequence. Safe to call more than once.
func (b *Builder) Close() {
	b.done = true
	b.stop()
}
