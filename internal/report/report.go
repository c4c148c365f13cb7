// Package report carries non-fatal export diagnostics from the geometry
// pipeline to whoever invoked it.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Reporter receives informational and warning messages. Reporting never
// interrupts the export of the current mesh.
type Reporter interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
}

// Logger reports through a structured logger.
type Logger struct {
	Log *slog.Logger
}

// NewLogger returns a Logger writing to l, or to slog.Default() when l is nil.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{Log: l}
}

func (r *Logger) Info(format string, args ...any) {
	r.Log.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (r *Logger) Warning(format string, args ...any) {
	r.Log.Log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Collector keeps every message in memory. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	Infos    []string
	Warnings []string
}

func (c *Collector) Info(format string, args ...any) {
	c.mu.Lock()
	c.Infos = append(c.Infos, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

func (c *Collector) Warning(format string, args ...any) {
	c.mu.Lock()
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

// Discard drops every message.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Info(string, ...any)    {}
func (discard) Warning(string, ...any) {}
