package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/netsspi/pkg/bufpool"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/transport"
)

// Conn is the byte stream dispatch runs over. *transport.Context
// satisfies it.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// SendMessage writes the whole frame, retrying partial writes until every
// byte is sent or the transport fails.
func SendMessage(ctx context.Context, conn Conn, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for sent := 0; sent < len(frame); {
		n, err := conn.Write(frame[sent:])
		sent += n
		if err != nil {
			return transportError("write", err)
		}
		if n == 0 {
			return fmt.Errorf("dispatch: write: %w", io.ErrShortWrite)
		}
	}
	return nil
}

// ReceiveMessage reads one complete frame in direction d. The fixed header is
// read first, possibly across several reads, then exactly the payload length
// it announces. A partially filled frame is never returned: EOF part way
// through fails with transport.ErrConnectionClosed.
//
// maxSize caps TotalLength; zero means no cap. The payload buffer grows with
// the bytes actually received, never up front from the announced length.
func ReceiveMessage(ctx context.Context, conn Conn, d protocol.Direction, maxSize int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header := make([]byte, d.HeaderSize())
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, transportError("read header", err)
	}

	total, err := protocol.TotalLength(d, header)
	if err != nil {
		return nil, &protocol.DecodeError{Function: protocol.FunctionID(header[5]), Err: err}
	}
	if maxSize > 0 && uint64(total) > uint64(maxSize) {
		return nil, &protocol.DecodeError{
			Function: protocol.FunctionID(header[5]),
			Err:      fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, total, maxSize),
		}
	}

	remaining := int(total) - len(header)
	if remaining <= 0 {
		return header, nil
	}
	frame := append(make([]byte, 0, len(header)+min(remaining, readChunkSize)), header...)

	chunk := bufpool.Get(min(remaining, readChunkSize))
	defer func() {
		clear(chunk)
		bufpool.Put(chunk)
	}()
	for remaining > 0 {
		n, err := io.ReadFull(conn, chunk[:min(remaining, len(chunk))])
		frame = appendWiping(frame, chunk[:n])
		remaining -= n
		if err != nil {
			clear(frame)
			return nil, transportError("read payload", err)
		}
	}
	return frame, nil
}

// appendWiping appends b to frame. When frame has to grow, the old backing
// array is zeroed so request bytes never linger in memory the caller cannot
// reach.
func appendWiping(frame, b []byte) []byte {
	if len(frame)+len(b) <= cap(frame) {
		return append(frame, b...)
	}
	grown := make([]byte, len(frame), max(2*cap(frame), len(frame)+len(b)))
	copy(grown, frame)
	clear(frame)
	return append(grown, b...)
}

// readChunkSize bounds each payload read.
const readChunkSize = bufpool.DefaultMediumSize

// transportError maps end-of-stream conditions to ErrConnectionClosed and
// passes everything else through.
func transportError(op string, err error) error {
	if errors.Is(err, transport.ErrConnectionClosed) {
		return err
	}
	if transport.IsClosed(err) {
		return fmt.Errorf("dispatch: %s: %w (%v)", op, transport.ErrConnectionClosed, err)
	}
	return fmt.Errorf("dispatch: %s: %w", op, err)
}
