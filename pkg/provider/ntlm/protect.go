package ntlm

import (
	"context"

	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/wire"
)

// cloneMessage deep-copies a descriptor so it can be transformed in place.
func cloneMessage(d wire.SecBufferDesc) wire.SecBufferDesc {
	out := wire.SecBufferDesc{Version: d.Version, Buffers: make([]wire.SecBuffer, len(d.Buffers))}
	for i, b := range d.Buffers {
		out.Buffers[i] = wire.SecBuffer{Type: b.Type, Data: append([]byte(nil), b.Data...)}
	}
	return out
}

// signedData concatenates every data buffer, read-only ones included.
func signedData(d *wire.SecBufferDesc) []byte {
	var n int
	for _, b := range d.Buffers {
		if b.Type&wire.SecBufferTypeMask == wire.SecBufferData {
			n += len(b.Data)
		}
	}
	out := make([]byte, 0, n)
	for _, b := range d.Buffers {
		if b.Type&wire.SecBufferTypeMask == wire.SecBufferData {
			out = append(out, b.Data...)
		}
	}
	return out
}

// sealedParts returns the data buffers that are encrypted: read-only
// buffers are signed but left in the clear.
func sealedParts(d *wire.SecBufferDesc) [][]byte {
	var parts [][]byte
	for _, b := range d.Buffers {
		if b.Type&wire.SecBufferTypeMask == wire.SecBufferData && b.Type&wire.SecBufferReadOnly == 0 {
			parts = append(parts, b.Data)
		}
	}
	return parts
}

// protectedContext returns a locked established context that has session
// keys. The caller unlocks.
func (p *Provider) protectedContext(h wire.Handle) (*securityContext, protocol.Status) {
	sc, status := p.getEstablished(h)
	if status.IsError() {
		return nil, status
	}
	if sc.sec == nil {
		sc.mu.Unlock()
		return nil, protocol.StatusUnsupportedFunction
	}
	return sc, protocol.StatusOK
}

func (p *Provider) MakeSignature(_ context.Context, req *protocol.MakeSignatureRequest) (*protocol.MakeSignatureResponse, protocol.Status) {
	if req.QOP != 0 {
		return nil, protocol.StatusQOPNotSupported
	}
	sc, status := p.protectedContext(req.Context)
	if status.IsError() {
		return nil, status
	}
	defer sc.mu.Unlock()

	msg := cloneMessage(req.Message)
	tok, ok := msg.Find(wire.SecBufferToken)
	if !ok {
		return nil, protocol.StatusInvalidToken
	}
	data := signedData(&msg)
	sig := sc.sec.sign(req.SeqNo, data)
	tok.Data = sig[:]
	metrics.RecordMessage(p.cfg.Metrics, "sign", len(data))
	return &protocol.MakeSignatureResponse{Message: msg}, protocol.StatusOK
}

func (p *Provider) VerifySignature(_ context.Context, req *protocol.VerifySignatureRequest) (*protocol.VerifySignatureResponse, protocol.Status) {
	sc, status := p.protectedContext(req.Context)
	if status.IsError() {
		return nil, status
	}
	defer sc.mu.Unlock()

	msg := req.Message
	tok, ok := msg.Find(wire.SecBufferToken)
	if !ok || len(tok.Data) != SignatureSize {
		return nil, protocol.StatusInvalidToken
	}
	data := signedData(&msg)
	if !sc.sec.verify(req.SeqNo, data, tok.Data) {
		return nil, protocol.StatusMessageAltered
	}
	metrics.RecordMessage(p.cfg.Metrics, "verify", len(data))
	return &protocol.VerifySignatureResponse{QOP: 0}, protocol.StatusOK
}

func (p *Provider) EncryptMessage(_ context.Context, req *protocol.EncryptMessageRequest) (*protocol.EncryptMessageResponse, protocol.Status) {
	if req.QOP != 0 && req.QOP != protocol.QOPWrapNoEncrypt {
		return nil, protocol.StatusQOPNotSupported
	}
	sc, status := p.protectedContext(req.Context)
	if status.IsError() {
		return nil, status
	}
	defer sc.mu.Unlock()

	msg := cloneMessage(req.Message)
	tok, ok := msg.Find(wire.SecBufferToken)
	if !ok {
		return nil, protocol.StatusInvalidToken
	}

	var sig [SignatureSize]byte
	if req.QOP == protocol.QOPWrapNoEncrypt {
		sig = sc.sec.sign(req.SeqNo, signedData(&msg))
	} else {
		if !sc.flags.Has(FlagSeal) {
			return nil, protocol.StatusUnsupportedFunction
		}
		sig = sc.sec.seal(req.SeqNo, signedData(&msg), sealedParts(&msg))
	}
	tok.Data = sig[:]
	metrics.RecordMessage(p.cfg.Metrics, "seal", len(signedData(&msg)))
	return &protocol.EncryptMessageResponse{Message: msg}, protocol.StatusOK
}

func (p *Provider) DecryptMessage(_ context.Context, req *protocol.DecryptMessageRequest) (*protocol.DecryptMessageResponse, protocol.Status) {
	sc, status := p.protectedContext(req.Context)
	if status.IsError() {
		return nil, status
	}
	defer sc.mu.Unlock()
	if !sc.flags.Has(FlagSeal) {
		return nil, protocol.StatusUnsupportedFunction
	}

	msg := cloneMessage(req.Message)
	tok, ok := msg.Find(wire.SecBufferToken)
	if !ok || len(tok.Data) != SignatureSize {
		return nil, protocol.StatusInvalidToken
	}
	sc.sec.unseal(sealedParts(&msg))
	data := signedData(&msg)
	if !sc.sec.verify(req.SeqNo, data, tok.Data) {
		return nil, protocol.StatusMessageAltered
	}
	metrics.RecordMessage(p.cfg.Metrics, "unseal", len(data))
	return &protocol.DecryptMessageResponse{Message: msg, QOP: 0}, protocol.StatusOK
}
