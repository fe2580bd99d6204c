// Package flushlog provides a slog handler that buffers records in
// memory and hands them to the wrapped handler only on an explicit
// Flush. A worker serving sequential requests flushes at the end of each
// one, so the log lines of a request leave the process together.
package flushlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultLimit bounds the buffer when no explicit limit is given.
const DefaultLimit = 1024

type entry struct {
	handler slog.Handler
	record  slog.Record
}

// buffer is shared between a Handler and everything derived from it via
// WithAttrs/WithGroup, so one Flush drains them all.
type buffer struct {
	mu      sync.Mutex
	entries []entry
	dropped int
	limit   int
}

// Handler implements slog.Handler on top of a bounded record buffer.
// Records past the limit are dropped and reported in a single synthetic
// record at the next Flush.
type Handler struct {
	inner slog.Handler
	buf   *buffer
}

func New(inner slog.Handler, limit int) *Handler {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Handler{
		inner: inner,
		buf:   &buffer{limit: limit},
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle clones the record into the buffer. Nothing reaches the wrapped
// handler until Flush.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()

	if len(h.buf.entries) >= h.buf.limit {
		h.buf.dropped++
		return nil
	}

	h.buf.entries = append(h.buf.entries, entry{
		handler: h.inner,
		record:  record.Clone(),
	})

	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs), buf: h.buf}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), buf: h.buf}
}

// Flush replays every buffered record into the wrapped handler and
// empties the buffer. Replay continues past sink failures; the first
// failure is returned.
func (h *Handler) Flush() error {
	h.buf.mu.Lock()
	entries := h.buf.entries
	dropped := h.buf.dropped
	h.buf.entries = nil
	h.buf.dropped = 0
	h.buf.mu.Unlock()

	var firstErr error

	for _, e := range entries {
		if err := e.handler.Handle(context.Background(), e.record); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if dropped > 0 {
		record := slog.NewRecord(time.Now(), slog.LevelWarn, "log buffer overflowed", 0)
		record.AddAttrs(slog.Int("dropped", dropped))

		if err := h.inner.Handle(context.Background(), record); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
