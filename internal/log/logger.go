/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package log provides centralized slog-based logging for photolayout.
// Records are enriched with component, operation and, when the context
// carries one, the workspace path and print job id.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"photolayout/internal/version"
)

// Environment overrides read by FromEnv: level is debug|info|warn|error,
// format is console|json, source is true|false and file is the path of a
// rotated JSON log.
const (
	EnvLevel  = "PLY_LOG_LEVEL"
	EnvFormat = "PLY_LOG_FORMAT"
	EnvSource = "PLY_LOG_SOURCE"
	EnvFile   = "PLY_LOG_FILE"
)

// Rotation of the optional log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

// Options controls logger initialization. The zero value logs INFO and above
// as console lines to stderr. File, when set, additionally writes JSON
// records to a rotated file; Output redirects the console records.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	Output    io.Writer
}

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
)

// L returns the application logger, initializing it from the environment
// on first use.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Init configures the application logger and installs it as slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlers := []slog.Handler{withContext(consoleHandler(out, opts.Format, lvl, opts.AddSource))}
	if path := strings.TrimSpace(opts.File); path != "" {
		w := &lj.Logger{Filename: path, MaxSize: fileMaxSizeMB, MaxBackups: fileMaxBackups, MaxAge: fileMaxAgeDays, Compress: true}
		handlers = append(handlers, withContext(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})))
	}
	h := handlers[0]
	if len(handlers) > 1 {
		h = &fanout{hs: handlers}
	}

	logger := slog.New(h).With(
		slog.String("app", "photolayout"),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	slog.SetDefault(logger)
}

func consoleHandler(w io.Writer, format string, lvl slog.Leveler, addSource bool) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: addSource})
	}
	return &lineHandler{opts: lineOptions{Level: lvl, AddSource: addSource}, w: w, mu: &sync.Mutex{}}
}

// FromEnv builds Options from the PLY_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "console"),
		AddSource: strings.EqualFold(getenv(EnvSource, "false"), "true"),
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type ctxKey int

const (
	workspaceKey ctxKey = iota
	jobKey
)

// ContextWithWorkspace returns a context whose log records carry the workspace path.
func ContextWithWorkspace(ctx context.Context, root string) context.Context {
	return context.WithValue(ctx, workspaceKey, root)
}

// ContextWithJob returns a context whose log records carry the print job id.
func ContextWithJob(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobKey, id)
}

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends every record to the console and the log file.
type fanout struct{ hs []slog.Handler }

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fanout{hs: each(f.hs, func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return &fanout{hs: each(f.hs, func(h slog.Handler) slog.Handler { return h.WithGroup(name) })}
}

func each(hs []slog.Handler, fn func(slog.Handler) slog.Handler) []slog.Handler {
	out := make([]slog.Handler, len(hs))
	for i, h := range hs {
		out[i] = fn(h)
	}
	return out
}

// contextHandler copies the workspace and job id from the context onto the record.
type contextHandler struct{ next slog.Handler }

func withContext(h slog.Handler) slog.Handler { return &contextHandler{next: h} }

func (c *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.next.Enabled(ctx, level)
}

func (c *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if ws, ok := ctx.Value(workspaceKey).(string); ok && ws != "" {
			r.AddAttrs(slog.String("workspace", ws))
		}
		if id, ok := ctx.Value(jobKey).(string); ok && id != "" {
			r.AddAttrs(slog.String("job", id))
		}
	}
	return c.next.Handle(ctx, r)
}

func (c *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: c.next.WithAttrs(attrs)}
}

func (c *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: c.next.WithGroup(name)}
}

// lineHandler writes one line per record: time level message key=value...
// Keys are qualified by the groups open when they were added.
// attrs are preformatted as " key=value"; prefix is the open groups
// joined with ".".
type lineHandler struct {
	opts   lineOptions
	w      io.Writer
	mu     *sync.Mutex
	attrs  []string
	prefix string
}

type lineOptions struct {
	Level     slog.Leveler
	AddSource bool
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.Grow(256)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(levelString(r.Level))
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	for _, a := range h.attrs {
		b.WriteString(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		b.WriteString(formatAttr(h.prefix, a))
		return true
	})
	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(" src=")
			b.WriteString(f.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(f.Line))
		}
	}
	b.WriteByte('\n')
	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) clone() *lineHandler {
	c := *h
	if c.mu == nil {
		c.mu = &sync.Mutex{}
	}
	c.attrs = append([]string(nil), h.attrs...)
	return &c
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		c.attrs = append(c.attrs, formatAttr(h.prefix, a))
	}
	return c
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = h.prefix + name + "."
	return c
}

func formatAttr(prefix string, a slog.Attr) string {
	return " " + prefix + a.Key + "=" + attrValueString(a.Value)
}

func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return l.String()
	}
}

func attrValueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.Resolve().String()
	}
}
