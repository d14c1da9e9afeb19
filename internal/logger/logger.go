// Package logger is the process-wide structured logger shared by the client,
// the dispatch server and the security provider. It wraps log/slog with a
// colored text handler, a JSON handler and a LogContext carried through
// context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is a log severity. Its values match slog's.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

var levelNames = map[string]Level{
	"DEBUG":   LevelDebug,
	"INFO":    LevelInfo,
	"WARN":    LevelWarn,
	"WARNING": LevelWarn,
	"ERROR":   LevelError,
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// sink is one immutable output configuration. Reconfiguring swaps the
// whole sink; the level lives outside it so SetLevel never rebuilds.
type sink struct {
	w      io.Writer
	file   *os.File // set when Output named a file
	color  bool
	format string
	log    *slog.Logger
}

var (
	level   slog.LevelVar
	current atomic.Pointer[sink]
	swapMu  sync.Mutex
)

func init() {
	level.Set(slog.LevelInfo)
	install(&sink{w: os.Stderr, color: isTerminal(os.Stderr.Fd()), format: "text"})
}

// install builds the slog.Logger for s and makes it current, closing the
// file of the sink it replaces.
func install(s *sink) {
	opts := &slog.HandlerOptions{Level: &level, ReplaceAttr: redactSecrets}
	if s.format == "json" {
		s.log = slog.New(slog.NewJSONHandler(s.w, opts))
	} else {
		s.log = slog.New(NewColorTextHandler(s.w, opts, s.color))
	}
	if old := current.Swap(s); old != nil && old.file != nil && old.file != s.file {
		_ = old.file.Close()
	}
}

// modify copies the current sink, applies fn and installs the result.
func modify(fn func(*sink)) {
	swapMu.Lock()
	defer swapMu.Unlock()
	next := *current.Load()
	fn(&next)
	install(&next)
}

// Init applies cfg. Output can be "stdout", "stderr", or a file path that
// is opened for append.
func Init(cfg Config) error {
	if cfg.Level != "" {
		if _, err := ParseLevel(cfg.Level); err != nil {
			return err
		}
	}
	format := strings.ToLower(cfg.Format)
	if format != "" && format != "text" && format != "json" {
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var (
		w     io.Writer
		file  *os.File
		color bool
	)
	switch strings.ToLower(cfg.Output) {
	case "":
	case "stdout":
		w, color = os.Stdout, isTerminal(os.Stdout.Fd())
	case "stderr":
		w, color = os.Stderr, isTerminal(os.Stderr.Fd())
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		w, file = f, f
	}

	SetLevel(cfg.Level)
	modify(func(s *sink) {
		if w != nil {
			s.w, s.file, s.color = w, file, color
		}
		if format != "" {
			s.format = format
		}
	})
	return nil
}

// InitWithWriter sends output to w. Used by tests and by commands that
// capture their own output.
func InitWithWriter(w io.Writer, lvl, format string, enableColor bool) {
	SetLevel(lvl)
	modify(func(s *sink) {
		s.w, s.file, s.color = w, nil, enableColor
		if f := strings.ToLower(format); f == "text" || f == "json" {
			s.format = f
		}
	})
}

// ParseLevel maps a level name (case-insensitive) to a Level
func ParseLevel(name string) (Level, error) {
	if l, ok := levelNames[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return l, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level %q", name)
}

// SetLevel sets the minimum log level. Invalid names are ignored.
func SetLevel(name string) {
	if l, err := ParseLevel(name); err == nil {
		level.Set(slog.Level(l))
	}
}

// GetLevel returns the current minimum log level
func GetLevel() Level {
	return Level(level.Level())
}

// SetFormat switches between text and json. Other values are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	modify(func(s *sink) { s.format = format })
}

func enabled(l Level) bool {
	return slog.Level(l) >= level.Level()
}

func emit(ctx context.Context, l Level, msg string, args []any) {
	if !enabled(l) {
		return
	}
	args = appendContextFields(ctx, args)
	current.Load().log.Log(ctx, slog.Level(l), msg, args...)
}

// Debug logs at debug level. args are slog key/value pairs or slog.Attr.
func Debug(msg string, args ...any) { emit(context.Background(), LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { emit(context.Background(), LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { emit(context.Background(), LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { emit(context.Background(), LevelError, msg, args) }

// DebugCtx logs at debug level, prefixing the fields of the LogContext in ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

// appendContextFields puts the LogContext fields in front of args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}
	pairs := [...]struct{ key, val string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyFunction, lc.Function},
		{KeyConnectionID, lc.ConnectionID},
		{KeyTransport, lc.Transport},
		{KeyRemoteAddr, lc.RemoteAddr},
	}
	out := make([]any, 0, 2*len(pairs)+len(args))
	for _, p := range pairs {
		if p.val != "" {
			out = append(out, p.key, p.val)
		}
	}
	return append(out, args...)
}

// With returns a slog.Logger bound to the current sink with extra attributes.
func With(args ...any) *slog.Logger {
	return current.Load().log.With(args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// redactSecrets blanks attributes whose key names credential material.
// Values inside groups are matched on their own key.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
