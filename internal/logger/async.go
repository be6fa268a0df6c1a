package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler hands records to a pool of writers over a buffered channel so
// request goroutines never block on stdout. Records are dropped when the
// buffer is full.
type AsyncHandler struct {
	inner   slog.Handler
	ch      chan asyncRecord
	wg      *sync.WaitGroup
	dropped *atomic.Int64

	mu     *sync.RWMutex // guards closed against sends racing Close
	closed *bool
}

// asyncRecord keeps the originating context so ContextHandler attributes
// resolved upstream are not lost. The context is detached from cancellation.
type asyncRecord struct {
	ctx context.Context
	rec slog.Record
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		ch:      make(chan asyncRecord, chanSize),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
		mu:      &sync.RWMutex{},
		closed:  new(bool),
	}
	for range workers {
		h.wg.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.wg.Done()
	for ar := range h.ch {
		_ = h.inner.Handle(ar.ctx, ar.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the channel is full or closed.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.mu.RLock()
	defer h.mu.RUnlock()
	if *h.closed {
		h.dropped.Add(1)
		return nil
	}
	select {
	case h.ch <- asyncRecord{ctx: context.WithoutCancel(ctx), rec: rec.Clone()}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same channel but wrapping a derived inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	return &c
}

// WithGroup returns a handler sharing the same channel but wrapping a derived inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.inner = h.inner.WithGroup(name)
	return &c
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and waits for the buffer to drain.
func (h *AsyncHandler) Close() {
	h.mu.Lock()
	if *h.closed {
		h.mu.Unlock()
		return
	}
	*h.closed = true
	close(h.ch)
	h.mu.Unlock()
	h.wg.Wait()
}
