package framebuffer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingRepr struct {
	releases atomic.Int32
}

func (r *countingRepr) Release() {
	r.releases.Add(1)
}

func TestBufferFIFO(t *testing.T) {
	t.Parallel()

	b := New(0)
	require.Equal(t, DefaultCapacity, b.Capacity())

	for i := 0; i < b.Capacity(); i++ {
		require.True(t, b.Push(Frame{PTSUS: int64(i)}))
	}
	require.Equal(t, b.Capacity(), b.Count())

	for i := 0; i < b.Capacity(); i++ {
		f, ok := b.Peek()
		require.True(t, ok)
		require.Equal(t, int64(i), f.PTSUS)
		b.Consume()
	}
	require.Equal(t, 0, b.Count())

	_, ok := b.TryPeek()
	require.False(t, ok)
}

func TestBufferPushBlocksUntilConsume(t *testing.T) {
	t.Parallel()

	b := New(1)
	require.True(t, b.Push(Frame{PTSUS: 1}))

	pushed := make(chan bool)
	go func() {
		pushed <- b.Push(Frame{PTSUS: 2})
	}()

	select {
	case <-pushed:
		t.Fatal("push returned while the buffer was full")
	case <-time.After(50 * time.Millisecond):
	}

	b.Consume()
	select {
	case ok := <-pushed:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("push did not resume after consume")
	}

	f, ok := b.TryPeek()
	require.True(t, ok)
	require.Equal(t, int64(2), f.PTSUS)
}

func TestBufferReleasesOnConsume(t *testing.T) {
	t.Parallel()

	b := New(2)
	repr := &countingRepr{}
	require.True(t, b.Push(Frame{Repr: repr, PTSUS: 1}))
	b.Consume()
	require.Equal(t, int32(1), repr.releases.Load())
}

func TestBufferInvalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New(3)
	reprs := make([]*countingRepr, 3)
	for i := range reprs {
		reprs[i] = &countingRepr{}
		require.True(t, b.Push(Frame{Repr: reprs[i], PTSUS: int64(i)}))
	}

	b.Invalidate(ctx)
	require.Equal(t, 0, b.Count())
	for _, r := range reprs {
		require.Equal(t, int32(1), r.releases.Load())
	}

	// invalidating an empty buffer is a no-op
	b.Invalidate(ctx)
	for _, r := range reprs {
		require.Equal(t, int32(1), r.releases.Load())
	}

	// the ring restarts from slot zero
	require.True(t, b.Push(Frame{PTSUS: 42}))
	f, ok := b.Peek()
	require.True(t, ok)
	require.Equal(t, int64(42), f.PTSUS)
}

func TestBufferInterrupt(t *testing.T) {
	t.Parallel()

	b := New(1)

	peeked := make(chan bool)
	go func() {
		_, ok := b.Peek()
		peeked <- ok
	}()

	select {
	case <-peeked:
		t.Fatal("peek returned on an empty buffer")
	case <-time.After(50 * time.Millisecond):
	}

	b.Interrupt()
	select {
	case ok := <-peeked:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("peek did not wake on interrupt")
	}

	// interrupted buffer rejects new pushes until resumed
	require.False(t, b.Push(Frame{PTSUS: 1}))
	b.Resume()
	require.True(t, b.Push(Frame{PTSUS: 1}))
}
