// Package framebuffer implements the bounded ring of decoded frames shared
// between the decode worker (producer) and the display worker (consumer).
package framebuffer

import (
	"context"
	"sync"

	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
)

// DefaultCapacity is the number of slots used by a decoder instance; ~3
// frames of decode-ahead is enough to ride out scheduling jitter without
// adding visible startup latency.
const DefaultCapacity = 3

// Frame is the content of one slot: the active representation, how to
// interpret it, and its media timestamp. The wall-clock delivery target is
// computed by the consumer at peek time, against the current clock anchor.
type Frame struct {
	Repr  frame.Representation
	Video frame.Video
	PTSUS int64
}

type slot struct {
	frame Frame
	ready bool
}

// Buffer is a fixed-capacity single-producer/single-consumer ring with
// blocking backpressure in both directions. One mutex protects the slot
// array, the indices and the count; one condition variable signals both
// "slot freed" and "frame available" (broadcast, so an interrupt wakes
// whichever side is waiting).
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	slots       []slot
	readIdx     int
	writeIdx    int
	count       int
	interrupted bool
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Buffer{
		slots: make([]slot, capacity),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Buffer) Capacity() int {
	return len(b.slots)
}

func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Push blocks while the buffer is full, then stores f in the next write slot
// and wakes the consumer. Any resources still owned by the reused slot are
// released before the overwrite. It returns false if the buffer was
// interrupted while waiting (the caller must release f itself then).
func (b *Buffer) Push(f Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count >= len(b.slots) && !b.interrupted {
		b.cond.Wait()
	}
	if b.interrupted {
		return false
	}

	s := &b.slots[b.writeIdx]
	if s.frame.Repr != nil {
		s.frame.Repr.Release()
	}
	s.frame = f
	s.ready = true
	b.writeIdx = (b.writeIdx + 1) % len(b.slots)
	b.count++
	b.cond.Broadcast()
	return true
}

// Peek blocks while the buffer is empty, then returns a copy of the front
// frame without consuming it: the display worker re-checks pacing (and may
// sleep outside the lock) before deciding to deliver or drop. Returns false
// if interrupted.
func (b *Buffer) Peek() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for (b.count == 0 || !b.slots[b.readIdx].ready) && !b.interrupted {
		b.cond.Wait()
	}
	if b.interrupted {
		return Frame{}, false
	}
	return b.slots[b.readIdx].frame, true
}

// TryPeek is Peek without blocking.
func (b *Buffer) TryPeek() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 || !b.slots[b.readIdx].ready {
		return Frame{}, false
	}
	return b.slots[b.readIdx].frame, true
}

// Consume marks the front slot as consumed, releases its representation and
// advances the read index; the producer is woken if the buffer was full.
func (b *Buffer) Consume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return
	}
	s := &b.slots[b.readIdx]
	if s.frame.Repr != nil {
		s.frame.Repr.Release()
	}
	s.frame = Frame{}
	s.ready = false
	b.readIdx = (b.readIdx + 1) % len(b.slots)
	b.count--
	b.cond.Broadcast()
}

// Invalidate releases every slot's resources, marks all slots not-ready and
// resets the indices to zero. This is the only path that may reset indices
// outside normal advance; it runs on seek, loop and stop. Invalidating an
// already-empty buffer is a no-op, so calling it twice in a row is safe.
func (b *Buffer) Invalidate(ctx context.Context) {
	logger.Debugf(ctx, "invalidating the frame buffer")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.slots {
		s := &b.slots[i]
		if s.frame.Repr != nil {
			s.frame.Repr.Release()
		}
		s.frame = Frame{}
		s.ready = false
	}
	b.readIdx = 0
	b.writeIdx = 0
	b.count = 0
	b.cond.Broadcast()
}

// Interrupt wakes both sides; subsequent Push/Peek calls fail until Resume.
// Used on stop so that neither worker stays parked on the condition variable.
func (b *Buffer) Interrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupted = true
	b.cond.Broadcast()
}

// Resume clears the interrupted state so the buffer can be reused by the next
// playback session.
func (b *Buffer) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupted = false
}
