package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	ansiReset = "\033[0m"
	ansiKey   = "\033[36m"
	ansiTime  = "\033[90m"
)

var levelStyles = []struct {
	below slog.Level
	label string
	ansi  string
}{
	{slog.LevelInfo, "DBG", "\033[90m"},
	{slog.LevelWarn, "INF", "\033[32m"},
	{slog.LevelError, "WRN", "\033[33m"},
}

const errorStyle = "\033[31m"

// ColorTextHandler writes one line per record:
//
//	15:04:05.000 INF message key=value key="value with spaces"
//
// Groups, including those returned by slog.LogValuer, become dotted keys.
type ColorTextHandler struct {
	opts     slog.HandlerOptions
	w        io.Writer
	mu       *sync.Mutex
	prefix   []byte // pre-rendered WithAttrs output
	groups   []string
	useColor bool
}

// NewColorTextHandler creates a ColorTextHandler writing to w. opts may be nil.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	h := &ColorTextHandler{w: w, mu: new(sync.Mutex), useColor: useColor}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *ColorTextHandler) Enabled(_ context.Context, l slog.Level) bool {
	if h.opts.Level == nil {
		return l >= slog.LevelInfo
	}
	return l >= h.opts.Level.Level()
}

func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = h.paint(buf, ansiTime, r.Time.Format("15:04:05.000"))
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, r.Level)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.prefix...)

	groups := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.groups, groups, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ColorTextHandler) appendLevel(buf []byte, l slog.Level) []byte {
	for _, s := range levelStyles {
		if l < s.below {
			return h.paint(buf, s.ansi, s.label)
		}
	}
	return h.paint(buf, errorStyle, "ERR")
}

func (h *ColorTextHandler) paint(buf []byte, ansi, s string) []byte {
	if !h.useColor {
		return append(buf, s...)
	}
	buf = append(buf, ansi...)
	buf = append(buf, s...)
	return append(buf, ansiReset...)
}

func (h *ColorTextHandler) appendAttr(buf []byte, groups []string, prefix string, a slog.Attr) []byte {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(groups, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := groups
		if a.Key != "" {
			sub = append(groups[:len(groups):len(groups)], a.Key)
		} else {
			key = prefix
		}
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, sub, key, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = h.paint(buf, ansiKey, key)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'f', 3, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339Nano)
	}
	s := v.String()
	if needsQuote(s) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '"' || r == '=' || !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	prefix := strings.Join(h.groups, ".")
	c.prefix = append([]byte(nil), h.prefix...)
	for _, a := range attrs {
		c.prefix = h.appendAttr(c.prefix, h.groups, prefix, a)
	}
	return &c
}

func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &c
}
