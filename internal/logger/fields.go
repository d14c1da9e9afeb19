package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so logs from the
// client, the server loop and the provider can be joined on the same fields.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Protocol & Operation
	// ========================================================================
	KeyFunction   = "function"    // Function name: AcquireCredentialsHandle, EncryptMessage, ...
	KeyFunctionID = "function_id" // Numeric function identifier from the header
	KeyStatus     = "status"      // Response status code
	KeyFlags      = "flags"       // Header flags byte
	KeyPackage    = "package"     // Security package name: NTLM, Negotiate
	KeyHandle     = "handle"      // Credential or context handle
	KeySeqNo      = "seq_no"      // Message sequence number
	KeyAttribute  = "attribute"   // Attribute identifier for query/set calls

	// ========================================================================
	// Transport & Connection
	// ========================================================================
	KeyTransport    = "transport"     // Transport kind: tcp, ipc, serial
	KeyTarget       = "target"        // Address, socket path or device
	KeyRole         = "role"          // client or server
	KeyConnectionID = "connection_id" // Connection identifier
	KeyRemoteAddr   = "remote_addr"   // Peer address when known
	KeyBytes        = "bytes"         // Message size in bytes

	// ========================================================================
	// Identity
	// ========================================================================
	KeyUsername = "username" // Account name presented in an AUTHENTICATE message
	KeyDomain   = "domain"   // Domain presented in an AUTHENTICATE message

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // Error class: transport, framing, validation
	KeyAttempt    = "attempt"     // Retry attempt number
)

const redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]struct{}{
	"password":    {},
	"nt_hash":     {},
	"session_key": {},
	"secret":      {},
}

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Function returns a slog.Attr for a function name
func Function(name string) slog.Attr {
	return slog.String(KeyFunction, name)
}

// FunctionID returns a slog.Attr for a numeric function identifier
func FunctionID(id uint8) slog.Attr {
	return slog.Int(KeyFunctionID, int(id))
}

// Status returns a slog.Attr for a status code, formatted as hex
func Status(code uint32) slog.Attr {
	return slog.String(KeyStatus, fmt.Sprintf("0x%08X", code))
}

// Package returns a slog.Attr for a security package name
func Package(name string) slog.Attr {
	return slog.String(KeyPackage, name)
}

// Handle returns a slog.Attr for a handle already rendered as text
func Handle(h string) slog.Attr {
	return slog.String(KeyHandle, h)
}

// Transport returns a slog.Attr for the transport kind
func Transport(kind string) slog.Attr {
	return slog.String(KeyTransport, kind)
}

// Target returns a slog.Attr for a transport target
func Target(target string) slog.Attr {
	return slog.String(KeyTarget, target)
}

// Role returns a slog.Attr for the connection role
func Role(role string) slog.Attr {
	return slog.String(KeyRole, role)
}

// ConnectionID returns a slog.Attr for connection identifier
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// RemoteAddr returns a slog.Attr for the peer address
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// Bytes returns a slog.Attr for a message size
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Username returns a slog.Attr for username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Domain returns a slog.Attr for domain name
func Domain(name string) slog.Attr {
	return slog.String(KeyDomain, name)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for an error class
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}
