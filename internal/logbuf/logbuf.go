// Package logbuf keeps the most recent log records in memory for the debug
// panel.
package logbuf

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSize is the ring capacity used when none is given.
const DefaultSize = 500

// Entry is one retained log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Ring is a fixed-capacity buffer of log entries. Oldest entries are
// overwritten first.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewRing creates a ring holding up to size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ring{entries: make([]Entry, size)}
}

func (r *Ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns a snapshot, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}

// Handler is a slog.Handler that records into a Ring and optionally passes
// every record on to another handler.
type Handler struct {
	ring   *Ring
	next   slog.Handler
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // group prefix for attribute keys
}

// NewHandler records records at or above level into ring. next may be nil.
func NewHandler(ring *Ring, level slog.Leveler, next slog.Handler) *Handler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &Handler{ring: ring, next: next, level: level}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	if l >= h.level.Level() {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, l)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= h.level.Level() {
		e := Entry{Time: rec.Time, Level: rec.Level.String(), Message: rec.Message}
		if len(h.attrs) > 0 || rec.NumAttrs() > 0 {
			e.Attrs = make(map[string]any, len(h.attrs)+rec.NumAttrs())
			for _, a := range h.attrs {
				e.Attrs[a.Key] = a.Value.Resolve().Any()
			}
			rec.Attrs(func(a slog.Attr) bool {
				e.Attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
				return true
			})
		}
		h.ring.add(e)
	}
	if h.next != nil && h.next.Enabled(ctx, rec.Level) {
		return h.next.Handle(ctx, rec)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

// Ring returns the buffer the handler writes to.
func (h *Handler) Ring() *Ring {
	return h.ring
}
