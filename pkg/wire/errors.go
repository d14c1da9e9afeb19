package wire

import "errors"

var (
	// ErrTruncated is returned when fewer bytes remain than a fixed-size read needs.
	ErrTruncated = errors.New("wire: truncated input")

	// ErrLengthExceedsInput is returned when a length or count taken from the
	// wire claims more data than the message still holds. It is raised before
	// any allocation sized by the untrusted value.
	ErrLengthExceedsInput = errors.New("wire: declared length exceeds remaining input")

	// ErrUnsupportedVersion is returned for a buffer descriptor whose version
	// is not SecBufferVersion.
	ErrUnsupportedVersion = errors.New("wire: unsupported buffer descriptor version")
)
