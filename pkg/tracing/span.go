// Package tracing records lightweight in-process spans carried through a
// context. Finished trees are written to slog at debug level.
package tracing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type contextKey struct{}

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	mu        sync.Mutex
}

// StartSpan creates a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan creates a child of the span in ctx. Without a parent the
// child is a detached root.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	child := &Span{
		Name:      name,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	if parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.StartTime)
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Log writes the span tree to log, parents before children.
func (s *Span) Log(log *slog.Logger) {
	s.logRecursive(log, 0)
}

func (s *Span) logRecursive(log *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_us", s.Duration.Microseconds(),
		"depth", depth,
	}
	keys := make([]string, 0, len(s.Attrs))
	for k := range s.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, s.Attrs[k])
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	log.Debug("span", attrs...)
	for _, child := range children {
		child.logRecursive(log, depth+1)
	}
}
