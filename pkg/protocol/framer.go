package protocol

import (
	"fmt"

	"github.com/marmos91/netsspi/pkg/wire"
)

// defaultFrameCapacity covers the header plus a typical handshake token.
const defaultFrameCapacity = 256

// EncodeRequest frames msg behind h. Function and TotalLength are filled in
// from msg and the encoded payload; the other header fields are kept. A nil
// msg produces a header-only frame for h.Function.
func EncodeRequest(h RequestHeader, msg Message) ([]byte, error) {
	if msg != nil {
		h.Function = msg.FunctionID()
	}
	w := wire.NewWriter(defaultFrameCapacity)
	h.Encode(w)
	if msg != nil {
		msg.Encode(w)
	}
	w.PutUint32At(0, uint32(w.Len()))
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode %s request: %w", h.Function, err)
	}
	return w.Bytes(), nil
}

// EncodeResponse frames msg behind h. It follows the rules of EncodeRequest.
func EncodeResponse(h ResponseHeader, msg Message) ([]byte, error) {
	if msg != nil {
		h.Function = msg.FunctionID()
	}
	w := wire.NewWriter(defaultFrameCapacity)
	h.Encode(w)
	if msg != nil {
		msg.Encode(w)
	}
	w.PutUint32At(0, uint32(w.Len()))
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode %s response: %w", h.Function, err)
	}
	return w.Bytes(), nil
}

// DecodeRequest parses a complete request frame. The header is returned
// whenever it parsed, even if the payload did not, so a server can still
// answer with the right function identifier.
func DecodeRequest(frame []byte) (RequestHeader, Message, error) {
	h, err := ParseRequestHeader(frame)
	if err != nil {
		return h, nil, decodeError(0, err)
	}
	if int(h.TotalLength) != len(frame) {
		return h, nil, decodeError(h.Function, fmt.Errorf("%w: total length %d, frame is %d bytes",
			ErrMalformedHeader, h.TotalLength, len(frame)))
	}
	msg, err := NewRequest(h.Function)
	if err != nil {
		return h, nil, decodeError(h.Function, err)
	}
	if err := decodePayload(msg, frame[RequestHeaderSize:]); err != nil {
		return h, nil, decodeError(h.Function, err)
	}
	return h, msg, nil
}

// DecodeResponse parses a complete response frame. An empty payload with an
// error Status yields a zero response: servers send no body when they reject
// a request before reaching the provider.
func DecodeResponse(frame []byte) (ResponseHeader, Message, error) {
	h, err := ParseResponseHeader(frame)
	if err != nil {
		return h, nil, decodeError(0, err)
	}
	if int(h.TotalLength) != len(frame) {
		return h, nil, decodeError(h.Function, fmt.Errorf("%w: total length %d, frame is %d bytes",
			ErrMalformedHeader, h.TotalLength, len(frame)))
	}
	msg, err := NewResponse(h.Function)
	if err != nil {
		return h, nil, decodeError(h.Function, err)
	}
	payload := frame[ResponseHeaderSize:]
	if len(payload) == 0 && h.Status.IsError() {
		return h, msg, nil
	}
	if err := decodePayload(msg, payload); err != nil {
		return h, nil, decodeError(h.Function, err)
	}
	return h, msg, nil
}

func decodePayload(msg Message, payload []byte) error {
	r := wire.NewReader(payload)
	msg.Decode(r)
	if err := r.Err(); err != nil {
		return err
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, r.Remaining())
	}
	return nil
}
