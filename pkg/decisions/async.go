package decisions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AsyncRecorder queues decisions in a bounded buffer and writes them to a
// BatchWriter from a background goroutine. Record never blocks: when the
// buffer is full the decision is dropped and OnDrop is called.
type AsyncRecorder struct {
	writer       BatchWriter
	entries      chan Decision
	flushReqs    chan chan error
	ticker       *time.Ticker
	batchSize    int
	writeTimeout time.Duration
	onDrop       func(Decision)
	onError      func(error, int)

	wg     sync.WaitGroup
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// AsyncConfig configures an AsyncRecorder.
type AsyncConfig struct {
	// Writer receives batches. Required.
	Writer BatchWriter
	// BufferSize is the queue capacity (default: 1000).
	BufferSize int
	// BatchSize is the max decisions per write (default: 100).
	BatchSize int
	// FlushInterval is how often a partial batch is written (default: 2s).
	FlushInterval time.Duration
	// WriteTimeout bounds each batch write (default: 5s).
	WriteTimeout time.Duration
	// OnDrop is called for each decision dropped on a full buffer.
	OnDrop func(Decision)
	// OnError is called with the error and batch size of a failed write.
	OnError func(err error, n int)
}

// NewAsyncRecorder starts the background writer.
func NewAsyncRecorder(cfg AsyncConfig) *AsyncRecorder {
	if cfg.Writer == nil {
		panic("decisions: AsyncRecorder requires a non-nil Writer")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.OnDrop == nil {
		cfg.OnDrop = func(Decision) {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error, int) {}
	}

	r := &AsyncRecorder{
		writer:       cfg.Writer,
		entries:      make(chan Decision, cfg.BufferSize),
		flushReqs:    make(chan chan error),
		ticker:       time.NewTicker(cfg.FlushInterval),
		batchSize:    cfg.BatchSize,
		writeTimeout: cfg.WriteTimeout,
		onDrop:       cfg.OnDrop,
		onError:      cfg.OnError,
		done:         make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Record queues d. It returns nil even when d is dropped.
func (r *AsyncRecorder) Record(_ context.Context, d Decision) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.onDrop(d)
		return nil
	}

	select {
	case r.entries <- d:
	default:
		r.onDrop(d)
	}
	return nil
}

// Flush blocks until every decision queued before the call is written.
func (r *AsyncRecorder) Flush(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil
	}

	reply := make(chan error, 1)
	select {
	case r.flushReqs <- reply:
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes everything still queued and stops the background goroutine.
func (r *AsyncRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()
	r.ticker.Stop()
	return nil
}

func (r *AsyncRecorder) run() {
	defer r.wg.Done()

	batch := make([]Decision, 0, r.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		defer cancel()

		err := r.writer.WriteBatch(ctx, batch)
		if err != nil {
			r.onError(fmt.Errorf("writing %d decisions: %w", len(batch), err), len(batch))
		}
		batch = batch[:0]
		return err
	}

	add := func(d Decision) {
		batch = append(batch, d)
		if len(batch) >= r.batchSize {
			flush()
		}
	}

	// drain moves everything currently queued into batches.
	drain := func() {
		for {
			select {
			case d := <-r.entries:
				add(d)
			default:
				return
			}
		}
	}

	for {
		select {
		case d := <-r.entries:
			add(d)

		case <-r.ticker.C:
			flush()

		case reply := <-r.flushReqs:
			drain()
			reply <- flush()

		case <-r.done:
			drain()
			flush()
			return
		}
	}
}
