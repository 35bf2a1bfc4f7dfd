// Package logger is the bot's structured event log: one line per event,
// keyed by component and event name, carrying the update identity from ctx.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/supperbot/core/buildinfo"
	coreconfig "github.com/m3rciful/supperbot/core/config"
)

// L is the process logger; nil until InitLogger runs.
var L *slog.Logger

var (
	mu      sync.Mutex
	started bool
	writer  *asyncWriter
	sinks   []io.Closer

	level       slog.LevelVar
	debugSample sampler
	trace       bool
)

// settings is the logging section resolved to concrete values.
type settings struct {
	format logFormat
	order  []string
	level  slog.Level
	num    int
	den    int
	file   string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, order: defaultKeyOrder, level: slog.LevelInfo, num: 1, den: 50}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	profile := strings.ToLower(strings.TrimSpace(lc.Profile))

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if profile == "debug" || profile == "dev" {
			s.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if num, den, ok := parseRatio(lc.DebugSample); ok {
		s.num, s.den = num, den
	}

	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

// InitLogger installs L and the slog default. Calls after the first are
// no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return nil
	}

	s := resolve(cfg)
	outputs := []io.Writer{os.Stdout}
	if s.file != "" {
		f, err := openSink(s.file)
		if err != nil {
			return err
		}
		outputs = append(outputs, f)
		sinks = append(sinks, f)
	}

	level.Set(s.level)
	debugSample.set(s.num, s.den)
	trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

	writer = newAsyncWriter(outputs, 4096)
	L = slog.New(newStructuredHandler(handlerConfig{
		level:    &level,
		writer:   writer,
		format:   s.format,
		keyOrder: s.order,
	}))
	slog.SetDefault(L)
	started = true

	profile := "prod"
	if cfg != nil && strings.TrimSpace(cfg.Logging.Profile) != "" {
		profile = strings.ToLower(strings.TrimSpace(cfg.Logging.Profile))
	}
	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("cfg_profile", profile),
	)
	return nil
}

func openSink(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown drains pending lines and closes file sinks.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if !started || writer == nil {
		return nil
	}
	errs := []error{writer.Close()}
	for _, c := range sinks {
		errs = append(errs, c.Close())
	}
	writer, sinks = nil, nil
	return errors.Join(errs...)
}

// Background is context.Background; kept so tests read like call sites.
func Background() context.Context { return context.Background() }

// LogEvent writes event through logg, or the ctx logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(orBackground(ctx), lvl, "", attrs...)
}

// Component returns L scoped to name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func logAt(ctx context.Context, component string, lvl slog.Level, event string, attrs []slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		attrs = append([]slog.Attr{slog.String("component", component)}, attrs...)
	}
	LogEvent(ctx, logg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelDebug, event, attrs)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelInfo, event, attrs)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelWarn, event, attrs)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, component, slog.LevelError, event, attrs)
}

// ShouldSampleDebug gates per-update debug detail. TRACE=1 admits all.
func ShouldSampleDebug() bool {
	return trace || debugSample.allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// RoundMS rounds d to whole milliseconds; negatives become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports truncation.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
