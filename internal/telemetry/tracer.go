package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for NetSSPI spans.
const (
	// ========================================================================
	// RPC attributes
	// ========================================================================
	AttrRPCSystem   = "rpc.system" // always "netsspi"
	AttrRPCMethod   = "rpc.method" // function name
	AttrFunctionID  = "netsspi.function_id"
	AttrStatus      = "netsspi.status"
	AttrStatusName  = "netsspi.status_name"
	AttrFlags       = "netsspi.flags"
	AttrRequestLen  = "netsspi.request.bytes"
	AttrResponseLen = "netsspi.response.bytes"
	AttrRole        = "netsspi.role"

	// ========================================================================
	// Transport attributes
	// ========================================================================
	AttrTransport    = "network.transport" // tcp, ipc, serial
	AttrPeerAddress  = "network.peer.address"
	AttrConnectionID = "netsspi.connection_id"

	// ========================================================================
	// Security attributes
	// ========================================================================
	AttrPackage = "sspi.package"
	AttrHandle  = "sspi.handle"
	AttrSeqNo   = "sspi.seq_no"
)

// Span names.
const (
	SpanClientCall = "netsspi.client"
	SpanServerCall = "netsspi.server"
	SpanConnection = "netsspi.connection"
)

// ============================================================================
// Attribute constructors
// ============================================================================

// Method returns the rpc.method attribute
func Method(name string) attribute.KeyValue {
	return attribute.String(AttrRPCMethod, name)
}

// FunctionID returns the numeric function identifier attribute
func FunctionID(id uint8) attribute.KeyValue {
	return attribute.Int(AttrFunctionID, int(id))
}

// Status returns the response status attribute in hex
func Status(code uint32) attribute.KeyValue {
	return attribute.String(AttrStatus, fmt.Sprintf("0x%08X", code))
}

// RequestBytes returns the framed request size attribute
func RequestBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrRequestLen, n)
}

// ResponseBytes returns the framed response size attribute
func ResponseBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrResponseLen, n)
}

// Transport returns the transport kind attribute
func Transport(kind string) attribute.KeyValue {
	return attribute.String(AttrTransport, kind)
}

// PeerAddress returns the peer address attribute
func PeerAddress(addr string) attribute.KeyValue {
	return attribute.String(AttrPeerAddress, addr)
}

// ConnectionID returns the connection identifier attribute
func ConnectionID(id string) attribute.KeyValue {
	return attribute.String(AttrConnectionID, id)
}

// Package returns the security package attribute
func Package(name string) attribute.KeyValue {
	return attribute.String(AttrPackage, name)
}

// Handle returns a handle attribute already rendered as text
func Handle(h string) attribute.KeyValue {
	return attribute.String(AttrHandle, h)
}

// SeqNo returns the message sequence number attribute
func SeqNo(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrSeqNo, int64(n))
}

// StartCallSpan starts a span for one dispatched function. Client spans are
// SpanKindClient and server spans SpanKindServer.
func StartCallSpan(ctx context.Context, server bool, function string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	name, kind, role := SpanClientCall, trace.SpanKindClient, "client"
	if server {
		name, kind, role = SpanServerCall, trace.SpanKindServer, "server"
	}
	base := []attribute.KeyValue{
		attribute.String(AttrRPCSystem, "netsspi"),
		attribute.String(AttrRole, role),
		Method(function),
	}
	return StartSpan(ctx, name+"/"+function,
		trace.WithSpanKind(kind),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// StartConnectionSpan starts a span covering one served connection.
func StartConnectionSpan(ctx context.Context, transport, peer, connectionID string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanConnection,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(Transport(transport), PeerAddress(peer), ConnectionID(connectionID)),
	)
}
