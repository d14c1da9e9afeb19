package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput sends logger output to a buffer until the test ends.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := current.Load()
	prevLevel := level.Level()
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "", "text", false)
	t.Cleanup(func() {
		level.Set(prevLevel)
		swapMu.Lock()
		current.Store(prev)
		swapMu.Unlock()
	})
	return buf
}

// secretValue mimics a credential type that redacts itself.
type secretValue struct {
	user, password string
}

func (s secretValue) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", s.user),
		slog.String("password", "[redacted]"),
	)
}

// ============================================================================
// Level Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)

			SetLevel(tt.level)
			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	l, err = ParseLevel(" debug ")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l)

	_, err = ParseLevel("TRACE")
	assert.Error(t, err)
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	captureOutput(t)

	SetLevel("ERROR")
	SetLevel("bogus")
	assert.Equal(t, LevelError, GetLevel())
	assert.Equal(t, "ERROR", GetLevel().String())
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	captureOutput(t)

	err := Init(Config{Level: "LOUD"})
	assert.Error(t, err)
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestTextFormatFields(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	Info("request dispatched", KeyFunction, "EncryptMessage", KeyFunctionID, 25, KeyBytes, 42)

	out := buf.String()
	assert.Contains(t, out, " INF request dispatched")
	assert.Contains(t, out, "function=EncryptMessage")
	assert.Contains(t, out, "function_id=25")
	assert.Contains(t, out, "bytes=42")
}

func TestTextFormatFlattensLogValuer(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	Info("acquire", "identity", secretValue{user: "alice", password: "hunter2"})

	out := buf.String()
	assert.Contains(t, out, "identity.user=alice")
	assert.Contains(t, out, "identity.password=[redacted]")
	assert.NotContains(t, out, "hunter2")
}

func TestTextFormatGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, false)
	slog.New(h).WithGroup("conn").Info("opened", "id", "abc")
	assert.Contains(t, buf.String(), "conn.id=abc")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("json message", KeyStatus, "0x00000000")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "json message", entry["msg"])
	assert.Equal(t, "0x00000000", entry[KeyStatus])
}

func TestTextFormatQuotesValues(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	Info("handshake", KeyTarget, "HOST/server one", "empty", "", KeyDomain, "CORP")

	out := buf.String()
	assert.Contains(t, out, `target="HOST/server one"`)
	assert.Contains(t, out, `empty=""`)
	assert.Contains(t, out, "domain=CORP")
}

func TestSecretsAreRedacted(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		t.Run(format, func(t *testing.T) {
			buf := captureOutput(t)
			SetFormat(format)

			Info("user loaded", KeyUsername, "alice", "password", "hunter2",
				slog.Group("cred", slog.String("nt_hash", "8846f7eaee8fb117ad06bdd830b7586c")))

			out := buf.String()
			assert.Contains(t, out, "alice")
			assert.NotContains(t, out, "hunter2")
			assert.NotContains(t, out, "8846f7ea")
			assert.Contains(t, out, redacted)
		})
	}
}

func TestWithAttrsPrefix(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, false)
	slog.New(h).With(KeyRole, "server").WithGroup("req").Info("done", "id", 3)

	out := buf.String()
	assert.Contains(t, out, "role=server")
	assert.Contains(t, out, "req.id=3")
	assert.Less(t, strings.Index(out, "role="), strings.Index(out, "req.id"))
}

func TestInitFileOutput(t *testing.T) {
	captureOutput(t)
	path := filepath.Join(t.TempDir(), "netsspi.log")

	require.NoError(t, Init(Config{Output: path, Level: "WARN", Format: "json"}))
	Info("dropped")
	Warn("kept", KeyAttempt, 2)
	// Point back at memory so the file is closed before reading.
	InitWithWriter(io.Discard, "", "", false)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"attempt":2`)
}

func TestInitRejectsInvalidFormat(t *testing.T) {
	captureOutput(t)
	assert.Error(t, Init(Config{Format: "xml"}))
}

// ============================================================================
// Context Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")

	lc := NewLogContext("conn-1", "127.0.0.1:5000", "tcp").WithFunction("AcceptSecurityContext")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "handled", KeyStatus, "0x00090312")

	out := buf.String()
	assert.Contains(t, out, "connection_id=conn-1")
	assert.Contains(t, out, "function=AcceptSecurityContext")
	assert.Contains(t, out, "transport=tcp")
	assert.Contains(t, out, "remote_addr=127.0.0.1:5000")
	// Context fields come before call-site fields.
	assert.Less(t, strings.Index(out, "connection_id"), strings.Index(out, "status"))
}

func TestLogContext(t *testing.T) {
	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Zero(t, nilLC.DurationMs())
	assert.Nil(t, FromContext(context.Background()))

	lc := NewLogContext("c", "addr", "ipc")
	traced := lc.WithTrace("t", "s")
	assert.Equal(t, "t", traced.TraceID)
	assert.Empty(t, lc.TraceID, "original must not change")
	assert.GreaterOrEqual(t, traced.DurationMs(), 0.0)
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "0x80090308", Status(0x80090308).Value.String())
	assert.Equal(t, int64(7), FunctionID(7).Value.Int64())
	assert.True(t, Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 20 {
				Info("concurrent", "worker", n)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 160, strings.Count(buf.String(), "concurrent"))
}
