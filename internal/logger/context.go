package logger

import (
	"context"
	"time"
)

type ctxKey struct{}

// LogContext carries the per-connection and per-call fields that the *Ctx
// functions put in front of every record.
type LogContext struct {
	TraceID      string
	SpanID       string
	Function     string // function being dispatched
	ConnectionID string
	RemoteAddr   string
	Transport    string // tcp, ipc, serial
	StartTime    time.Time
}

// NewLogContext starts a LogContext for one connection.
func NewLogContext(connectionID, remoteAddr, transport string) *LogContext {
	return &LogContext{
		ConnectionID: connectionID,
		RemoteAddr:   remoteAddr,
		Transport:    transport,
		StartTime:    time.Now(),
	}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the LogContext attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(ctxKey{}).(*LogContext)
	return lc
}

// Clone returns a shallow copy. A nil receiver yields nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

func (lc *LogContext) derive(fn func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		fn(c)
	}
	return c
}

// WithFunction returns a copy for one dispatched call; the call clock
// restarts.
func (lc *LogContext) WithFunction(function string) *LogContext {
	return lc.derive(func(c *LogContext) {
		c.Function = function
		c.StartTime = time.Now()
	})
}

// WithTrace returns a copy carrying the span identifiers.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.derive(func(c *LogContext) {
		c.TraceID, c.SpanID = traceID, spanID
	})
}

// DurationMs is the time since StartTime in milliseconds, or 0 when unset.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
