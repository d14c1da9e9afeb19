package dispatch

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/transport"
	"github.com/marmos91/netsspi/pkg/wire"
)

// chunkBackend delivers reads and accepts writes at most chunk bytes at a
// time, the way a congested stream transport does.
type chunkBackend struct {
	in    *bytes.Reader
	out   bytes.Buffer
	chunk int
	reads int
}

func (b *chunkBackend) Open(context.Context) error { return nil }
func (b *chunkBackend) Close() error               { return nil }

func (b *chunkBackend) Read(p []byte) (int, error) {
	if len(p) > b.chunk {
		p = p[:b.chunk]
	}
	b.reads++
	return b.in.Read(p)
}

func (b *chunkBackend) Write(p []byte) (int, error) {
	if len(p) > b.chunk {
		p = p[:b.chunk]
	}
	return b.out.Write(p)
}

func newChunkContext(t *testing.T, input []byte, chunk int) (*transport.Context, *chunkBackend) {
	t.Helper()
	b := &chunkBackend{in: bytes.NewReader(input), chunk: chunk}
	c := transport.NewWithBackend(transport.KindTCP, transport.RoleClient, "chunk", b, transport.Options{})
	require.NoError(t, c.Open(context.Background()))
	return c, b
}

func encryptFrame(t *testing.T) []byte {
	t.Helper()
	frame, err := protocol.EncodeRequest(protocol.RequestHeader{}, &protocol.EncryptMessageRequest{
		Context: wire.Handle{Lower: 9},
		Message: wire.NewSecBufferDesc(
			wire.SecBuffer{Type: wire.SecBufferToken, Data: []byte{}},
			wire.SecBuffer{Type: wire.SecBufferData, Data: []byte("hello")},
		),
		SeqNo: 7,
	})
	require.NoError(t, err)
	return frame
}

func TestReceiveMessageOneByteReads(t *testing.T) {
	frame := encryptFrame(t)
	conn, b := newChunkContext(t, frame, 1)

	got, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	assert.GreaterOrEqual(t, b.reads, len(frame))

	_, msg, err := protocol.DecodeRequest(got)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), msg.(*protocol.EncryptMessageRequest).SeqNo)
}

func TestReceiveMessageOddChunks(t *testing.T) {
	frame := encryptFrame(t)
	for _, chunk := range []int{2, 3, 7, 11, len(frame)} {
		conn, _ := newChunkContext(t, frame, chunk)
		got, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
		require.NoError(t, err, "chunk %d", chunk)
		assert.Equal(t, frame, got, "chunk %d", chunk)
	}
}

func TestReceiveMessageBackToBack(t *testing.T) {
	first := encryptFrame(t)
	second, err := protocol.EncodeRequest(protocol.RequestHeader{}, &protocol.EnumerateSecurityPackagesRequest{})
	require.NoError(t, err)

	conn, _ := newChunkContext(t, append(append([]byte{}, first...), second...), 4)
	got, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
}

func TestReceiveMessageTruncated(t *testing.T) {
	frame := encryptFrame(t)

	t.Run("InHeader", func(t *testing.T) {
		conn, _ := newChunkContext(t, frame[:6], 1)
		_, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
		assert.ErrorIs(t, err, transport.ErrConnectionClosed)
	})

	t.Run("InPayload", func(t *testing.T) {
		conn, _ := newChunkContext(t, frame[:len(frame)-1], 3)
		got, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
		assert.ErrorIs(t, err, transport.ErrConnectionClosed)
		assert.Nil(t, got)
	})

	t.Run("Empty", func(t *testing.T) {
		conn, _ := newChunkContext(t, nil, 1)
		_, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
		assert.ErrorIs(t, err, transport.ErrConnectionClosed)
	})
}

func TestReceiveMessageRejectsShortTotalLength(t *testing.T) {
	header := make([]byte, protocol.RequestHeaderSize)
	binary.LittleEndian.PutUint32(header, 4)
	conn, _ := newChunkContext(t, header, 1)

	_, err := ReceiveMessage(context.Background(), conn, protocol.DirectionRequest, 0)
	assert.ErrorIs(t, err, protocol.ErrMalformedHeader)
	assert.True(t, protocol.IsDecodeError(err))
}

func TestReceiveMessageMaxSize(t *testing.T) {
	header := make([]byte, protocol.ResponseHeaderSize)
	binary.LittleEndian.PutUint32(header, 0x7FFFFFFF)
	conn, b := newChunkContext(t, header, 64)

	_, err := ReceiveMessage(context.Background(), conn, protocol.DirectionResponse, 1<<20)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.True(t, protocol.IsDecodeError(err))
	assert.Equal(t, 1, b.reads, "nothing read past the header")
}

func TestReceiveMessageCancelled(t *testing.T) {
	conn, _ := newChunkContext(t, encryptFrame(t), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReceiveMessage(ctx, conn, protocol.DirectionRequest, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendMessagePartialWrites(t *testing.T) {
	frame := encryptFrame(t)
	conn, b := newChunkContext(t, nil, 3)

	require.NoError(t, SendMessage(context.Background(), conn, frame))
	assert.Equal(t, frame, b.out.Bytes())
}

func TestSendMessageClosed(t *testing.T) {
	conn, _ := newChunkContext(t, nil, 3)
	require.NoError(t, conn.Close())

	err := SendMessage(context.Background(), conn, encryptFrame(t))
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
}
