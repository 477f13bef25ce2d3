package decisions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncRecorder_FlushWritesQueued(t *testing.T) {
	w := &memoryBatchWriter{}
	r := NewAsyncRecorder(AsyncConfig{Writer: w, FlushInterval: time.Hour})
	defer r.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	}

	require.NoError(t, r.Flush(context.Background()))
	assert.Len(t, w.snapshot(), 5)
}

func TestAsyncRecorder_BatchSize(t *testing.T) {
	w := &memoryBatchWriter{}
	r := NewAsyncRecorder(AsyncConfig{Writer: w, BatchSize: 2, FlushInterval: time.Hour})

	for i := 0; i < 4; i++ {
		require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	}
	require.NoError(t, r.Close())

	assert.Len(t, w.snapshot(), 4)
	assert.Equal(t, 2, w.batches)
}

func TestAsyncRecorder_IntervalFlush(t *testing.T) {
	w := &memoryBatchWriter{}
	r := NewAsyncRecorder(AsyncConfig{Writer: w, FlushInterval: 10 * time.Millisecond})
	defer r.Close()

	require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))

	assert.Eventually(t, func() bool { return len(w.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestAsyncRecorder_CloseDrains(t *testing.T) {
	w := &memoryBatchWriter{}
	r := NewAsyncRecorder(AsyncConfig{Writer: w, FlushInterval: time.Hour})

	for i := 0; i < 10; i++ {
		require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	}
	require.NoError(t, r.Close())
	assert.Len(t, w.snapshot(), 10)

	// Closing twice and recording after close are safe.
	require.NoError(t, r.Close())
	require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	require.NoError(t, r.Flush(context.Background()))
}

type blockingWriter struct {
	release chan struct{}
	entered chan struct{}
	memoryBatchWriter
}

func (b *blockingWriter) WriteBatch(ctx context.Context, batch []Decision) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.memoryBatchWriter.WriteBatch(ctx, batch)
}

func TestAsyncRecorder_DropsWhenFull(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	var dropped atomic.Int32
	r := NewAsyncRecorder(AsyncConfig{
		Writer:        w,
		BufferSize:    2,
		BatchSize:     1,
		FlushInterval: time.Hour,
		OnDrop:        func(Decision) { dropped.Add(1) },
	})

	// The first decision occupies the writer, the next two fill the buffer.
	require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	<-w.entered
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	}

	assert.Equal(t, int32(2), dropped.Load())

	close(w.release)
	require.NoError(t, r.Close())
	assert.Len(t, w.snapshot(), 3)
}

func TestAsyncRecorder_WriteErrorReported(t *testing.T) {
	w := &memoryBatchWriter{}
	w.err = errors.New("db unavailable")

	var failed atomic.Int32
	r := NewAsyncRecorder(AsyncConfig{
		Writer:        w,
		FlushInterval: time.Hour,
		OnError:       func(_ error, n int) { failed.Add(int32(n)) },
	})
	defer r.Close()

	require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	err := r.Flush(context.Background())

	assert.ErrorContains(t, err, "db unavailable")
	assert.Equal(t, int32(1), failed.Load())
}

func TestAsyncRecorder_FlushHonorsContext(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	r := NewAsyncRecorder(AsyncConfig{Writer: w, BatchSize: 1, FlushInterval: time.Hour})

	require.NoError(t, r.Record(context.Background(), sampleDecision(t, "c1")))
	<-w.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Flush(ctx), context.DeadlineExceeded)

	close(w.release)
	require.NoError(t, r.Close())
}

func TestNewAsyncRecorder_RequiresWriter(t *testing.T) {
	assert.Panics(t, func() { NewAsyncRecorder(AsyncConfig{}) })
}
