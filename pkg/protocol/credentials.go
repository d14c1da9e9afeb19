package protocol

import (
	"fmt"

	"github.com/marmos91/netsspi/pkg/wire"
)

// Credential use flags.
const (
	CredentialUseInbound  uint32 = 0x1
	CredentialUseOutbound uint32 = 0x2
	CredentialUseBoth     uint32 = 0x3
)

// writeIdentity writes AuthDataLength followed by the identity, or a zero
// length when id is nil.
func writeIdentity(w *wire.Writer, id *wire.AuthIdentity) {
	if id == nil {
		w.WriteUint32(0)
		return
	}
	w.WriteUint32(uint32(id.EncodedSize()))
	w.WriteAuthIdentity(id)
}

// readIdentity reads AuthDataLength and, when non-zero, an identity that
// must fill exactly that many bytes.
func readIdentity(r *wire.Reader) *wire.AuthIdentity {
	n := r.ReadUint32()
	if r.Err() != nil || n == 0 {
		return nil
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.Fail(errCountExceedsInput("auth data length", n, r.Remaining()))
		return nil
	}
	sub := r.Sub(int(n))
	id := sub.ReadAuthIdentity()
	if err := sub.Err(); err != nil {
		r.Fail(fmt.Errorf("auth identity: %w", err))
		return nil
	}
	if sub.Remaining() != 0 {
		r.Fail(fmt.Errorf("auth identity: %w: %d bytes", ErrTrailingData, sub.Remaining()))
		return nil
	}
	return &id
}

// QueryCredentialsAttributesRequest asks for one attribute of a credential.
type QueryCredentialsAttributesRequest struct {
	Credential wire.Handle
	Attribute  uint32
}

func (*QueryCredentialsAttributesRequest) FunctionID() FunctionID {
	return FuncQueryCredentialsAttributes
}

func (m *QueryCredentialsAttributesRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Credential)
	w.WriteUint32(m.Attribute)
}

func (m *QueryCredentialsAttributesRequest) Decode(r *wire.Reader) {
	m.Credential = r.ReadHandle()
	m.Attribute = r.ReadUint32()
}

// QueryCredentialsAttributesResponse carries the attribute value as an
// opaque buffer.
type QueryCredentialsAttributesResponse struct {
	Buffer []byte
}

func (*QueryCredentialsAttributesResponse) FunctionID() FunctionID {
	return FuncQueryCredentialsAttributes
}

func (m *QueryCredentialsAttributesResponse) Encode(w *wire.Writer) {
	w.WriteBlob(m.Buffer)
}

func (m *QueryCredentialsAttributesResponse) Decode(r *wire.Reader) {
	m.Buffer = r.ReadBlob()
}

// AcquireCredentialsHandleRequest asks the provider for a credential handle.
// Identity is nil when the caller presents no explicit credentials; on the
// wire that is an AuthDataLength of zero.
type AcquireCredentialsHandleRequest struct {
	Principal     wire.String
	Package       wire.String
	CredentialUse uint32
	LogonID       wire.LUID
	Identity      *wire.AuthIdentity
}

func (*AcquireCredentialsHandleRequest) FunctionID() FunctionID {
	return FuncAcquireCredentialsHandle
}

func (m *AcquireCredentialsHandleRequest) Encode(w *wire.Writer) {
	w.WriteString(m.Principal)
	w.WriteString(m.Package)
	w.WriteUint32(m.CredentialUse)
	w.WriteLUID(m.LogonID)
	writeIdentity(w, m.Identity)
}

func (m *AcquireCredentialsHandleRequest) Decode(r *wire.Reader) {
	m.Principal = r.ReadString()
	m.Package = r.ReadString()
	m.CredentialUse = r.ReadUint32()
	m.LogonID = r.ReadLUID()
	m.Identity = readIdentity(r)
}

// AcquireCredentialsHandleResponse returns the new handle and its expiry.
type AcquireCredentialsHandleResponse struct {
	Credential wire.Handle
	Expiry     wire.Timestamp
}

func (*AcquireCredentialsHandleResponse) FunctionID() FunctionID {
	return FuncAcquireCredentialsHandle
}

func (m *AcquireCredentialsHandleResponse) Encode(w *wire.Writer) {
	w.WriteHandle(m.Credential)
	w.WriteTimestamp(m.Expiry)
}

func (m *AcquireCredentialsHandleResponse) Decode(r *wire.Reader) {
	m.Credential = r.ReadHandle()
	m.Expiry = r.ReadTimestamp()
}

// FreeCredentialsHandleRequest releases a credential handle.
type FreeCredentialsHandleRequest struct {
	Credential wire.Handle
}

func (*FreeCredentialsHandleRequest) FunctionID() FunctionID {
	return FuncFreeCredentialsHandle
}

func (m *FreeCredentialsHandleRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Credential)
}

func (m *FreeCredentialsHandleRequest) Decode(r *wire.Reader) {
	m.Credential = r.ReadHandle()
}

// FreeCredentialsHandleResponse has no fields.
type FreeCredentialsHandleResponse struct{}

func (*FreeCredentialsHandleResponse) FunctionID() FunctionID { return FuncFreeCredentialsHandle }
func (*FreeCredentialsHandleResponse) Encode(*wire.Writer)    {}
func (*FreeCredentialsHandleResponse) Decode(*wire.Reader)    {}

// AddCredentialsRequest adds credentials for another package to an existing
// handle.
type AddCredentialsRequest struct {
	Credential    wire.Handle
	Principal     wire.String
	Package       wire.String
	CredentialUse uint32
	Identity      *wire.AuthIdentity
}

func (*AddCredentialsRequest) FunctionID() FunctionID {
	return FuncAddCredentials
}

func (m *AddCredentialsRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Credential)
	w.WriteString(m.Principal)
	w.WriteString(m.Package)
	w.WriteUint32(m.CredentialUse)
	writeIdentity(w, m.Identity)
}

func (m *AddCredentialsRequest) Decode(r *wire.Reader) {
	m.Credential = r.ReadHandle()
	m.Principal = r.ReadString()
	m.Package = r.ReadString()
	m.CredentialUse = r.ReadUint32()
	m.Identity = readIdentity(r)
}

// AddCredentialsResponse returns the expiry of the added credentials.
type AddCredentialsResponse struct {
	Expiry wire.Timestamp
}

func (*AddCredentialsResponse) FunctionID() FunctionID {
	return FuncAddCredentials
}

func (m *AddCredentialsResponse) Encode(w *wire.Writer) {
	w.WriteTimestamp(m.Expiry)
}

func (m *AddCredentialsResponse) Decode(r *wire.Reader) {
	m.Expiry = r.ReadTimestamp()
}
