package dispatch

import (
	"errors"

	"github.com/marmos91/netsspi/pkg/protocol"
)

var (
	// ErrMessageTooLarge is returned when a peer announces a frame above the
	// configured maximum. Nothing beyond the header is read.
	ErrMessageTooLarge = errors.New("dispatch: message too large")

	// ErrResponseMismatch is returned when a response names a different
	// function than the request it answers.
	ErrResponseMismatch = errors.New("dispatch: response function mismatch")

	// ErrServerClosed is returned by Serve after Stop.
	ErrServerClosed = errors.New("dispatch: server closed")
)

// errorKind classifies a failure for logs and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnsupportedFunction):
		return "unsupported_function"
	case errors.Is(err, protocol.ErrMalformedHeader), errors.Is(err, ErrMessageTooLarge):
		return "malformed_header"
	case errors.Is(err, ErrResponseMismatch):
		return "response_mismatch"
	case protocol.IsDecodeError(err):
		return "invalid_payload"
	default:
		return "transport"
	}
}
