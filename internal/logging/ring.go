package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is the number of records a Ring keeps by default.
const DefaultRingSize = 100

// MaxLineLength is the maximum length of a formatted record before truncation.
const MaxLineLength = 512

// ringBuffer is the storage shared by a Ring and the handlers derived from it.
type ringBuffer struct {
	mu    sync.Mutex
	lines []string
	idx   int
	total int
}

// Ring is an slog.Handler that formats records as single text lines and
// keeps the most recent ones in a circular buffer.
type Ring struct {
	buf    *ringBuffer
	level  slog.Leveler
	prefix string // rendered WithAttrs attributes
	group  string // dotted WithGroup prefix
}

// NewRing creates a ring that keeps up to size records.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{
		buf:   &ringBuffer{lines: make([]string, size)},
		level: slog.LevelInfo,
	}
}

func (r *Ring) withLevel(level slog.Leveler) *Ring {
	c := *r
	c.level = level
	return &c
}

// Enabled implements slog.Handler.
func (r *Ring) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level.Level()
}

// Handle implements slog.Handler.
func (r *Ring) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder
	b.WriteString(rec.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(rec.Level.String())
	b.WriteByte(' ')
	b.WriteString(rec.Message)
	b.WriteString(r.prefix)
	rec.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, r.group, a)
		return true
	})

	line := b.String()
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	r.buf.mu.Lock()
	r.buf.lines[r.buf.idx] = line
	r.buf.idx = (r.buf.idx + 1) % len(r.buf.lines)
	r.buf.total++
	r.buf.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(r.prefix)
	for _, a := range attrs {
		writeAttr(&b, r.group, a)
	}
	c := *r
	c.prefix = b.String()
	return &c
}

// WithGroup implements slog.Handler.
func (r *Ring) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	c := *r
	c.group = r.group + name + "."
	return &c
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, group, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", group, a.Key, a.Value.Any())
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (r *Ring) RecentLines(n int) []string {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()

	size := len(r.buf.lines)
	if n > size {
		n = size
	}
	if n > r.buf.total {
		n = r.buf.total
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.buf.idx - n + i + size) % size
		lines = append(lines, r.buf.lines[idx])
	}
	return lines
}

// Total returns the number of records handled since creation.
func (r *Ring) Total() int {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	return r.buf.total
}
