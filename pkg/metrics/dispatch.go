package metrics

import (
	"time"
)

// DispatchMetrics provides observability for the dispatch client and server.
//
// Implementations collect per-function request counts and latencies, decode
// failures, bytes on the wire and connection lifecycle. This interface is
// optional - pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	srv := dispatch.NewServer(cfg, provider, prometheus.NewDispatchMetrics())
//
//	// Without metrics (pass nil for zero overhead)
//	srv := dispatch.NewServer(cfg, provider, nil)
type DispatchMetrics interface {
	// RecordRequest records a completed call.
	//
	// Parameters:
	//   - role: "client" or "server"
	//   - function: function name (e.g., "AcceptSecurityContext")
	//   - duration: time from request framing to response framing
	//   - status: response status name (e.g., "SEC_E_OK")
	RecordRequest(role string, function string, duration time.Duration, status string)

	// RecordDecodeError records a framing or validation failure.
	//
	// Parameters:
	//   - role: "client" or "server"
	//   - kind: "malformed_header", "unsupported_function", "invalid_payload"
	//     or "transport"
	RecordDecodeError(role string, kind string)

	// RecordBytes records framed bytes moved in one direction.
	//
	// Parameters:
	//   - role: "client" or "server"
	//   - direction: "in" or "out"
	//   - bytes: frame size including the header
	RecordBytes(role string, direction string, bytes int)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed connections counter.
	// Called when connections are forcibly closed after shutdown timeout.
	RecordConnectionForceClosed()
}
