package protocol

import (
	"errors"
	"fmt"

	"github.com/marmos91/netsspi/pkg/wire"
)

var (
	// ErrMalformedHeader is returned when a header is short or its
	// TotalLength is inconsistent with the header size or the frame.
	ErrMalformedHeader = errors.New("protocol: malformed header")

	// ErrUnsupportedFunction is returned for reserved or unknown function
	// identifiers. No payload decode is attempted.
	ErrUnsupportedFunction = errors.New("protocol: unsupported function")

	// ErrTrailingData is returned when bytes remain after a payload decodes.
	ErrTrailingData = errors.New("protocol: trailing data after payload")
)

// DecodeError reports a framing or validation failure for one message. It
// separates "the protocol broke" from an operation failure carried in Status.
type DecodeError struct {
	Function FunctionID
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Function == 0 {
		return fmt.Sprintf("protocol: decode: %v", e.Err)
	}
	return fmt.Sprintf("protocol: decode %s: %v", e.Function, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func errCountExceedsInput(what string, count uint32, remaining int) error {
	return fmt.Errorf("%w: %s %d, %d bytes remain", wire.ErrLengthExceedsInput, what, count, remaining)
}

func decodeError(fn FunctionID, err error) error {
	return &DecodeError{Function: fn, Err: err}
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
