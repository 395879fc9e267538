package axle

import (
	"context"
	"math"
	"sync/atomic"
)

// latchWriter is the state value meaning "a single writer holds the latch".
// Any state below it is a reader count.
const latchWriter = math.MaxUint32

// Latch is the multi-reader/single-writer lock used throughout the world.
//
// The whole state is one atomic counter: 0 is idle, 1..MaxUint32-1 is that
// many readers, MaxUint32 is a single writer. A second counter tracks pending
// writers; while it is non-zero new readers are turned away, which keeps a
// stream of readers from starving a writer. The latch is intentionally unfair
// beyond that: writers race each other on every wake.
//
// A Latch never blocks by itself. The Try* methods fail fast, and the
// blocking forms park on the owning world's notifier between retries. There
// is no poisoning; a holder that panics leaks the lock.
type Latch struct {
	state          atomic.Uint32
	waitingWriters atomic.Uint32
	signal         *notifier
}

func newLatch(signal *notifier) *Latch {
	return &Latch{signal: signal}
}

// newLatchLocked creates a latch already held by a writer. The creator
// becomes the writer and must eventually call WriteUnlock. Used when a new
// archetype is inserted into storage so that its creator can populate it
// before any other acquirer can observe it.
func newLatchLocked(signal *notifier) *Latch {
	l := &Latch{signal: signal}
	l.state.Store(latchWriter)
	return l
}

// TryRead attempts to take a read hold. It fails while a writer holds the
// latch or any writer is waiting.
//
// Panics if the reader count would saturate.
func (l *Latch) TryRead() bool {
	if l.waitingWriters.Load() > 0 {
		return false
	}
	s := l.state.Load()
	if s >= latchWriter {
		return false
	}
	if s >= latchWriter-1 {
		panic("axle: latch reader count saturated")
	}
	return l.state.CompareAndSwap(s, s+1)
}

// TryWrite attempts to take the exclusive hold. It succeeds only from idle.
func (l *Latch) TryWrite() bool {
	return l.state.CompareAndSwap(0, latchWriter)
}

// TryUpgrade attempts to turn a read hold into the exclusive hold. It
// succeeds only if the caller is the sole reader. On failure the caller
// still holds its read.
func (l *Latch) TryUpgrade() bool {
	return l.state.CompareAndSwap(1, latchWriter)
}

// Read blocks until a read hold is taken or ctx is done.
func (l *Latch) Read(ctx context.Context) error {
	for {
		wake := l.signal.Wake()
		if l.TryRead() {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Write blocks until the exclusive hold is taken or ctx is done. While
// waiting it registers as a pending writer, gating out new readers.
func (l *Latch) Write(ctx context.Context) error {
	l.waitingWriters.Add(1)
	defer l.waitingWriters.Add(^uint32(0))
	for {
		wake := l.signal.Wake()
		if l.TryWrite() {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Upgrade blocks until the caller's read hold becomes the exclusive hold or
// ctx is done. On error the read hold is retained.
func (l *Latch) Upgrade(ctx context.Context) error {
	l.waitingWriters.Add(1)
	defer l.waitingWriters.Add(^uint32(0))
	for {
		wake := l.signal.Wake()
		if l.TryUpgrade() {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadUnlock releases one read hold.
func (l *Latch) ReadUnlock() {
	l.state.Add(^uint32(0))
	l.signal.Broadcast()
}

// WriteUnlock releases the exclusive hold.
func (l *Latch) WriteUnlock() {
	l.state.Store(0)
	l.signal.Broadcast()
}

// Downgrade turns the exclusive hold into a read hold without a release
// window in between.
func (l *Latch) Downgrade() {
	l.state.Store(1)
	l.signal.Broadcast()
}
