package ntlm

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/wire"
)

// AttrAppData stores an opaque application blob on a context
// (SECPKG_ATTR_APP_DATA).
const AttrAppData uint32 = 0x5E

// ExportDeleteOld deletes the source context after a successful export.
const ExportDeleteOld uint32 = 0x2

// getEstablished returns a locked, established context. The caller unlocks.
func (p *Provider) getEstablished(h wire.Handle) (*securityContext, protocol.Status) {
	sc, ok := p.contexts.get(h)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	sc.mu.Lock()
	if sc.state != stateEstablished {
		sc.mu.Unlock()
		return nil, protocol.StatusInvalidHandle
	}
	return sc, protocol.StatusOK
}

func encodeLifespan(start, expiry time.Time) []byte {
	w := wire.NewWriter(2 * wire.TimestampSize)
	if start.IsZero() {
		w.WriteTimestamp(wire.Timestamp{})
	} else {
		w.WriteTimestamp(timestamp(start))
	}
	w.WriteTimestamp(timestamp(expiry))
	return w.Bytes()
}

func (p *Provider) QueryContextAttributes(_ context.Context, req *protocol.QueryContextAttributesRequest) (*protocol.QueryContextAttributesResponse, protocol.Status) {
	sc, ok := p.contexts.get(req.Context)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var buf []byte
	switch req.Attribute {
	case protocol.AttrSizes:
		// cbMaxToken, cbMaxSignature, cbBlockSize, cbSecurityTrailer
		w := wire.NewWriter(16)
		w.WriteUint32(sc.pkg.info.MaxToken)
		w.WriteUint32(SignatureSize)
		w.WriteUint32(0)
		w.WriteUint32(SignatureSize)
		buf = w.Bytes()
	case protocol.AttrFlags:
		buf = binary.LittleEndian.AppendUint32(nil, sc.attributes())
	case protocol.AttrPackageInfo:
		w := wire.NewWriter(64)
		w.WriteUint32(sc.pkg.info.Capabilities)
		w.WriteUint16(sc.pkg.info.Version)
		w.WriteUint16(sc.pkg.info.RPCID)
		w.WriteUint32(sc.pkg.info.MaxToken)
		w.WriteString(sc.pkg.info.Name)
		w.WriteString(sc.pkg.info.Comment)
		buf = w.Bytes()
	case protocol.AttrLifespan:
		buf = encodeLifespan(sc.established, sc.expiry)
	case protocol.AttrNames:
		if sc.state != stateEstablished {
			return nil, protocol.StatusInvalidHandle
		}
		buf = []byte(accountName(sc.domain, sc.user, sc.anonymous))
	case protocol.AttrSessionKey:
		if sc.state != stateEstablished || sc.sec == nil {
			return nil, protocol.StatusInvalidHandle
		}
		buf = append([]byte(nil), sc.sec.exportedKey...)
	case AttrAppData:
		buf = append([]byte(nil), sc.appData...)
	default:
		return nil, protocol.StatusUnsupportedFunction
	}
	return &protocol.QueryContextAttributesResponse{Buffer: buf}, protocol.StatusOK
}

func (p *Provider) SetContextAttributes(_ context.Context, req *protocol.SetContextAttributesRequest) (*protocol.SetContextAttributesResponse, protocol.Status) {
	sc, ok := p.contexts.get(req.Context)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	if req.Attribute != AttrAppData {
		return nil, protocol.StatusUnsupportedFunction
	}
	sc.mu.Lock()
	sc.appData = append([]byte(nil), req.Buffer...)
	sc.mu.Unlock()
	return &protocol.SetContextAttributesResponse{}, protocol.StatusOK
}

// =============================================================================
// Impersonation
// =============================================================================

// ImpersonateSecurityContext only records the state; the provider has no
// process token to swap.
func (p *Provider) ImpersonateSecurityContext(ctx context.Context, req *protocol.ImpersonateSecurityContextRequest) (*protocol.ImpersonateSecurityContextResponse, protocol.Status) {
	sc, status := p.getEstablished(req.Context)
	if status.IsError() {
		return nil, status
	}
	defer sc.mu.Unlock()
	if sc.initiator {
		return nil, protocol.StatusNoImpersonation
	}
	sc.impersonating = true
	logger.DebugCtx(ctx, "Impersonating client",
		logger.Username(sc.user),
		logger.Domain(sc.domain))
	return &protocol.ImpersonateSecurityContextResponse{}, protocol.StatusOK
}

func (p *Provider) RevertSecurityContext(_ context.Context, req *protocol.RevertSecurityContextRequest) (*protocol.RevertSecurityContextResponse, protocol.Status) {
	sc, ok := p.contexts.get(req.Context)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.impersonating {
		return nil, protocol.StatusNoImpersonation
	}
	sc.impersonating = false
	return &protocol.RevertSecurityContextResponse{}, protocol.StatusOK
}

func (p *Provider) QuerySecurityContextToken(_ context.Context, req *protocol.QuerySecurityContextTokenRequest) (*protocol.QuerySecurityContextTokenResponse, protocol.Status) {
	sc, status := p.getEstablished(req.Context)
	if status.IsError() {
		return nil, status
	}
	defer sc.mu.Unlock()
	if sc.initiator {
		return nil, protocol.StatusInvalidHandle
	}
	if sc.token.IsZero() {
		sc.token = newHandle()
	}
	return &protocol.QuerySecurityContextTokenResponse{Token: sc.token}, protocol.StatusOK
}

// FreeContextBuffer has nothing to release: response buffers are owned by
// the caller once encoded.
func (p *Provider) FreeContextBuffer(context.Context, *protocol.FreeContextBufferRequest) (*protocol.FreeContextBufferResponse, protocol.Status) {
	return &protocol.FreeContextBufferResponse{}, protocol.StatusOK
}

// =============================================================================
// Export / Import
// =============================================================================

const (
	packedContextMagic   uint32 = 0x5443584E // "NXCT"
	packedContextVersion uint16 = 1
)

// packContext serializes an established context, including the keystream
// positions of both sealing handles.
func packContext(sc *securityContext) []byte {
	w := wire.NewWriter(128)
	w.WriteUint32(packedContextMagic)
	w.WriteUint16(packedContextVersion)
	w.WriteUint8(boolByte(sc.initiator))
	w.WriteUint8(boolByte(sc.anonymous))
	w.WriteString(sc.pkg.info.Name)
	w.WriteString(wire.NewWideString(sc.user))
	w.WriteString(wire.NewWideString(sc.domain))
	w.WriteUint32(uint32(sc.flags))
	w.WriteUint64(uint64(timestamp(sc.expiry).Int64()))
	if sc.sec == nil {
		w.WriteBlob(nil)
		w.WriteUint64(0)
		w.WriteUint64(0)
	} else {
		w.WriteBlob(sc.sec.exportedKey)
		w.WriteUint64(sc.sec.out.handle.used)
		w.WriteUint64(sc.sec.in.handle.used)
	}
	w.WriteBlob(sc.appData)
	return w.Bytes()
}

// unpackContext rebuilds a context produced by packContext for pkg.
func unpackContext(pkg *packageDef, data []byte) (*securityContext, error) {
	r := wire.NewReader(data)
	magic := r.ReadUint32()
	version := r.ReadUint16()
	initiator := r.ReadUint8() != 0
	anonymous := r.ReadUint8() != 0
	name := r.ReadString()
	user := r.ReadString()
	domain := r.ReadString()
	flags := NegotiateFlag(r.ReadUint32())
	expiry := int64(r.ReadUint64())
	key := r.ReadBlob()
	outUsed := r.ReadUint64()
	inUsed := r.ReadUint64()
	appData := r.ReadBlob()
	if r.Err() != nil || r.Remaining() != 0 {
		return nil, ErrInvalidContextBlob
	}
	if magic != packedContextMagic || version != packedContextVersion {
		return nil, ErrInvalidContextBlob
	}
	if !strings.EqualFold(name.Text(), pkg.name()) {
		return nil, ErrInvalidContextBlob
	}
	if len(key) != 0 && len(key) != 16 {
		return nil, ErrInvalidContextBlob
	}

	sc := &securityContext{
		pkg:       pkg,
		initiator: initiator,
		state:     stateEstablished,
		flags:     flags,
		user:      user.Text(),
		domain:    domain.Text(),
		anonymous: anonymous,
		appData:   appData,
	}
	if expiry != neverExpires.Int64() {
		sc.expiry = FromFiletime(uint64(expiry))
	}
	if len(key) > 0 {
		sc.sec = newSessionSecurity(key, flags, initiator, outUsed, inUsed)
	}
	return sc, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (p *Provider) ExportSecurityContext(ctx context.Context, req *protocol.ExportSecurityContextRequest) (*protocol.ExportSecurityContextResponse, protocol.Status) {
	sc, status := p.getEstablished(req.Context)
	if status.IsError() {
		return nil, status
	}
	packed := packContext(sc)
	token := sc.token
	sc.mu.Unlock()

	if req.Flags&ExportDeleteOld != 0 {
		p.contexts.remove(req.Context)
	}
	logger.DebugCtx(ctx, "Context exported",
		logger.Handle(req.Context.String()),
		logger.Bytes(len(packed)))

	return &protocol.ExportSecurityContextResponse{
		PackedContext: wire.SecBuffer{Type: wire.SecBufferData, Data: packed},
		Token:         token,
	}, protocol.StatusOK
}

func (p *Provider) ImportSecurityContext(ctx context.Context, req *protocol.ImportSecurityContextRequest) (*protocol.ImportSecurityContextResponse, protocol.Status) {
	pkg := p.lookupPackage(req.Package.Text())
	if pkg == nil {
		return nil, protocol.StatusSecPkgNotFound
	}
	sc, err := unpackContext(pkg, req.PackedContext.Data)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting packed context", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}
	sc.token = req.Token
	sc.established = p.now()

	h := p.contexts.add(dispatch.ConnectionID(ctx), sc)
	logger.DebugCtx(ctx, "Context imported",
		logger.Package(pkg.name()),
		logger.Handle(h.String()))
	return &protocol.ImportSecurityContextResponse{Context: h}, protocol.StatusOK
}
