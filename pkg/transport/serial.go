package transport

import (
	"fmt"
	"slices"
)

const defaultBaudRate = 115200

// baudRates are the line speeds every supported platform driver accepts.
var baudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// NewSerial builds a Context over a serial device. The link is point to
// point, so both roles open the device the same way. It returns
// ErrUnsupportedBackend where serial devices are not available.
func NewSerial(role Role, device string, opts Options) (*Context, error) {
	if !serialAvailable {
		return nil, fmt.Errorf("%w: serial devices on this platform", ErrUnsupportedBackend)
	}
	baud := opts.BaudRate
	if baud == 0 {
		baud = defaultBaudRate
	}
	if !slices.Contains(baudRates, baud) {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baud)
	}
	return NewWithBackend(KindSerial, role, device, &serialBackend{device: device, baud: baud}, opts), nil
}
