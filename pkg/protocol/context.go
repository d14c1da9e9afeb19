package protocol

import "github.com/marmos91/netsspi/pkg/wire"

// Context requirement and attribute flags shared by Initialize and Accept.
// The core passes them through; the reference provider interprets a subset.
const (
	ContextReqDelegate        uint32 = 0x00000001
	ContextReqMutualAuth      uint32 = 0x00000002
	ContextReqReplayDetect    uint32 = 0x00000004
	ContextReqSequenceDetect  uint32 = 0x00000008
	ContextReqConfidentiality uint32 = 0x00000010
	ContextReqUseSessionKey   uint32 = 0x00000020
	ContextReqAllocateMemory  uint32 = 0x00000100
	ContextReqConnection      uint32 = 0x00000800
	ContextReqIntegrity       uint32 = 0x00010000
)

// Data representations.
const (
	DataRepNative  uint32 = 0x00000010
	DataRepNetwork uint32 = 0x00000000
)

// Attribute identifiers for Query/SetContextAttributes and
// QueryCredentialsAttributes.
const (
	AttrSizes       uint32 = 0
	AttrNames       uint32 = 1
	AttrLifespan    uint32 = 2
	AttrPackageInfo uint32 = 10
	AttrSessionKey  uint32 = 9
	AttrFlags       uint32 = 14
)

// InitializeSecurityContextRequest drives the initiator side of a handshake.
type InitializeSecurityContextRequest struct {
	Credential    wire.Handle
	Context       wire.Handle
	TargetName    wire.String
	ContextReq    uint32
	TargetDataRep uint32
	Input         wire.SecBufferDesc
}

func (*InitializeSecurityContextRequest) FunctionID() FunctionID {
	return FuncInitializeSecurityContext
}

func (m *InitializeSecurityContextRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Credential)
	w.WriteHandle(m.Context)
	w.WriteString(m.TargetName)
	w.WriteUint32(m.ContextReq)
	w.WriteUint32(m.TargetDataRep)
	w.WriteSecBufferDesc(m.Input)
}

func (m *InitializeSecurityContextRequest) Decode(r *wire.Reader) {
	m.Credential = r.ReadHandle()
	m.Context = r.ReadHandle()
	m.TargetName = r.ReadString()
	m.ContextReq = r.ReadUint32()
	m.TargetDataRep = r.ReadUint32()
	m.Input = r.ReadSecBufferDesc()
}

// InitializeSecurityContextResponse carries the next output token.
type InitializeSecurityContextResponse struct {
	NewContext  wire.Handle
	Output      wire.SecBufferDesc
	ContextAttr uint32
	Expiry      wire.Timestamp
}

func (*InitializeSecurityContextResponse) FunctionID() FunctionID {
	return FuncInitializeSecurityContext
}

func (m *InitializeSecurityContextResponse) Encode(w *wire.Writer) {
	w.WriteHandle(m.NewContext)
	w.WriteSecBufferDesc(m.Output)
	w.WriteUint32(m.ContextAttr)
	w.WriteTimestamp(m.Expiry)
}

func (m *InitializeSecurityContextResponse) Decode(r *wire.Reader) {
	m.NewContext = r.ReadHandle()
	m.Output = r.ReadSecBufferDesc()
	m.ContextAttr = r.ReadUint32()
	m.Expiry = r.ReadTimestamp()
}

// AcceptSecurityContextRequest drives the acceptor side of a handshake.
type AcceptSecurityContextRequest struct {
	Credential    wire.Handle
	Context       wire.Handle
	Input         wire.SecBufferDesc
	ContextReq    uint32
	TargetDataRep uint32
}

func (*AcceptSecurityContextRequest) FunctionID() FunctionID {
	return FuncAcceptSecurityContext
}

func (m *AcceptSecurityContextRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Credential)
	w.WriteHandle(m.Context)
	w.WriteSecBufferDesc(m.Input)
	w.WriteUint32(m.ContextReq)
	w.WriteUint32(m.TargetDataRep)
}

func (m *AcceptSecurityContextRequest) Decode(r *wire.Reader) {
	m.Credential = r.ReadHandle()
	m.Context = r.ReadHandle()
	m.Input = r.ReadSecBufferDesc()
	m.ContextReq = r.ReadUint32()
	m.TargetDataRep = r.ReadUint32()
}

// AcceptSecurityContextResponse carries the next output token.
type AcceptSecurityContextResponse struct {
	NewContext  wire.Handle
	Output      wire.SecBufferDesc
	ContextAttr uint32
	Expiry      wire.Timestamp
}

func (*AcceptSecurityContextResponse) FunctionID() FunctionID {
	return FuncAcceptSecurityContext
}

func (m *AcceptSecurityContextResponse) Encode(w *wire.Writer) {
	w.WriteHandle(m.NewContext)
	w.WriteSecBufferDesc(m.Output)
	w.WriteUint32(m.ContextAttr)
	w.WriteTimestamp(m.Expiry)
}

func (m *AcceptSecurityContextResponse) Decode(r *wire.Reader) {
	m.NewContext = r.ReadHandle()
	m.Output = r.ReadSecBufferDesc()
	m.ContextAttr = r.ReadUint32()
	m.Expiry = r.ReadTimestamp()
}

// CompleteAuthTokenRequest finishes a token the provider asked the caller to
// complete.
type CompleteAuthTokenRequest struct {
	Context wire.Handle
	Token   wire.SecBufferDesc
}

func (*CompleteAuthTokenRequest) FunctionID() FunctionID { return FuncCompleteAuthToken }

func (m *CompleteAuthTokenRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteSecBufferDesc(m.Token)
}

func (m *CompleteAuthTokenRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Token = r.ReadSecBufferDesc()
}

type CompleteAuthTokenResponse struct{}

func (*CompleteAuthTokenResponse) FunctionID() FunctionID { return FuncCompleteAuthToken }
func (*CompleteAuthTokenResponse) Encode(*wire.Writer)    {}
func (*CompleteAuthTokenResponse) Decode(*wire.Reader)    {}

// DeleteSecurityContextRequest releases a security context.
type DeleteSecurityContextRequest struct {
	Context wire.Handle
}

func (*DeleteSecurityContextRequest) FunctionID() FunctionID  { return FuncDeleteSecurityContext }
func (m *DeleteSecurityContextRequest) Encode(w *wire.Writer) { w.WriteHandle(m.Context) }
func (m *DeleteSecurityContextRequest) Decode(r *wire.Reader) { m.Context = r.ReadHandle() }

type DeleteSecurityContextResponse struct{}

func (*DeleteSecurityContextResponse) FunctionID() FunctionID { return FuncDeleteSecurityContext }
func (*DeleteSecurityContextResponse) Encode(*wire.Writer)    {}
func (*DeleteSecurityContextResponse) Decode(*wire.Reader)    {}

// ApplyControlTokenRequest hands a control token to an established context.
type ApplyControlTokenRequest struct {
	Context wire.Handle
	Input   wire.SecBufferDesc
}

func (*ApplyControlTokenRequest) FunctionID() FunctionID { return FuncApplyControlToken }

func (m *ApplyControlTokenRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteSecBufferDesc(m.Input)
}

func (m *ApplyControlTokenRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Input = r.ReadSecBufferDesc()
}

type ApplyControlTokenResponse struct{}

func (*ApplyControlTokenResponse) FunctionID() FunctionID { return FuncApplyControlToken }
func (*ApplyControlTokenResponse) Encode(*wire.Writer)    {}
func (*ApplyControlTokenResponse) Decode(*wire.Reader)    {}

// QueryContextAttributesRequest asks for one attribute of a context.
type QueryContextAttributesRequest struct {
	Context   wire.Handle
	Attribute uint32
}

func (*QueryContextAttributesRequest) FunctionID() FunctionID { return FuncQueryContextAttributes }

func (m *QueryContextAttributesRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteUint32(m.Attribute)
}

func (m *QueryContextAttributesRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Attribute = r.ReadUint32()
}

// QueryContextAttributesResponse carries the attribute value as an opaque
// buffer.
type QueryContextAttributesResponse struct {
	Buffer []byte
}

func (*QueryContextAttributesResponse) FunctionID() FunctionID  { return FuncQueryContextAttributes }
func (m *QueryContextAttributesResponse) Encode(w *wire.Writer) { w.WriteBlob(m.Buffer) }
func (m *QueryContextAttributesResponse) Decode(r *wire.Reader) { m.Buffer = r.ReadBlob() }

// SetContextAttributesRequest sets one attribute of a context.
type SetContextAttributesRequest struct {
	Context   wire.Handle
	Attribute uint32
	Buffer    []byte
}

func (*SetContextAttributesRequest) FunctionID() FunctionID { return FuncSetContextAttributes }

func (m *SetContextAttributesRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteUint32(m.Attribute)
	w.WriteBlob(m.Buffer)
}

func (m *SetContextAttributesRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Attribute = r.ReadUint32()
	m.Buffer = r.ReadBlob()
}

type SetContextAttributesResponse struct{}

func (*SetContextAttributesResponse) FunctionID() FunctionID { return FuncSetContextAttributes }
func (*SetContextAttributesResponse) Encode(*wire.Writer)    {}
func (*SetContextAttributesResponse) Decode(*wire.Reader)    {}

// ImpersonateSecurityContextRequest makes the server act as the client.
type ImpersonateSecurityContextRequest struct {
	Context wire.Handle
}

func (*ImpersonateSecurityContextRequest) FunctionID() FunctionID {
	return FuncImpersonateSecurityContext
}
func (m *ImpersonateSecurityContextRequest) Encode(w *wire.Writer) { w.WriteHandle(m.Context) }
func (m *ImpersonateSecurityContextRequest) Decode(r *wire.Reader) { m.Context = r.ReadHandle() }

type ImpersonateSecurityContextResponse struct{}

func (*ImpersonateSecurityContextResponse) FunctionID() FunctionID {
	return FuncImpersonateSecurityContext
}
func (*ImpersonateSecurityContextResponse) Encode(*wire.Writer) {}
func (*ImpersonateSecurityContextResponse) Decode(*wire.Reader) {}

// RevertSecurityContextRequest ends an impersonation.
type RevertSecurityContextRequest struct {
	Context wire.Handle
}

func (*RevertSecurityContextRequest) FunctionID() FunctionID  { return FuncRevertSecurityContext }
func (m *RevertSecurityContextRequest) Encode(w *wire.Writer) { w.WriteHandle(m.Context) }
func (m *RevertSecurityContextRequest) Decode(r *wire.Reader) { m.Context = r.ReadHandle() }

type RevertSecurityContextResponse struct{}

func (*RevertSecurityContextResponse) FunctionID() FunctionID { return FuncRevertSecurityContext }
func (*RevertSecurityContextResponse) Encode(*wire.Writer)    {}
func (*RevertSecurityContextResponse) Decode(*wire.Reader)    {}

// FreeContextBufferRequest releases a provider-allocated buffer.
type FreeContextBufferRequest struct {
	Buffer wire.Handle
}

func (*FreeContextBufferRequest) FunctionID() FunctionID  { return FuncFreeContextBuffer }
func (m *FreeContextBufferRequest) Encode(w *wire.Writer) { w.WriteHandle(m.Buffer) }
func (m *FreeContextBufferRequest) Decode(r *wire.Reader) { m.Buffer = r.ReadHandle() }

type FreeContextBufferResponse struct{}

func (*FreeContextBufferResponse) FunctionID() FunctionID { return FuncFreeContextBuffer }
func (*FreeContextBufferResponse) Encode(*wire.Writer)    {}
func (*FreeContextBufferResponse) Decode(*wire.Reader)    {}

// ExportSecurityContextRequest serializes a context for transfer.
type ExportSecurityContextRequest struct {
	Context wire.Handle
	Flags   uint32
}

func (*ExportSecurityContextRequest) FunctionID() FunctionID { return FuncExportSecurityContext }

func (m *ExportSecurityContextRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteUint32(m.Flags)
}

func (m *ExportSecurityContextRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Flags = r.ReadUint32()
}

// ExportSecurityContextResponse carries the packed context and its token.
type ExportSecurityContextResponse struct {
	PackedContext wire.SecBuffer
	Token         wire.Handle
}

func (*ExportSecurityContextResponse) FunctionID() FunctionID { return FuncExportSecurityContext }

func (m *ExportSecurityContextResponse) Encode(w *wire.Writer) {
	w.WriteSecBuffer(m.PackedContext)
	w.WriteHandle(m.Token)
}

func (m *ExportSecurityContextResponse) Decode(r *wire.Reader) {
	m.PackedContext = r.ReadSecBuffer()
	m.Token = r.ReadHandle()
}

// ImportSecurityContextRequest rebuilds a context from an export.
type ImportSecurityContextRequest struct {
	Package       wire.String
	PackedContext wire.SecBuffer
	Token         wire.Handle
}

func (*ImportSecurityContextRequest) FunctionID() FunctionID { return FuncImportSecurityContext }

func (m *ImportSecurityContextRequest) Encode(w *wire.Writer) {
	w.WriteString(m.Package)
	w.WriteSecBuffer(m.PackedContext)
	w.WriteHandle(m.Token)
}

func (m *ImportSecurityContextRequest) Decode(r *wire.Reader) {
	m.Package = r.ReadString()
	m.PackedContext = r.ReadSecBuffer()
	m.Token = r.ReadHandle()
}

// ImportSecurityContextResponse returns the imported context handle.
type ImportSecurityContextResponse struct {
	Context wire.Handle
}

func (*ImportSecurityContextResponse) FunctionID() FunctionID  { return FuncImportSecurityContext }
func (m *ImportSecurityContextResponse) Encode(w *wire.Writer) { w.WriteHandle(m.Context) }
func (m *ImportSecurityContextResponse) Decode(r *wire.Reader) { m.Context = r.ReadHandle() }

// QuerySecurityContextTokenRequest asks for the access token of a context.
type QuerySecurityContextTokenRequest struct {
	Context wire.Handle
}

func (*QuerySecurityContextTokenRequest) FunctionID() FunctionID {
	return FuncQuerySecurityContextToken
}
func (m *QuerySecurityContextTokenRequest) Encode(w *wire.Writer) { w.WriteHandle(m.Context) }
func (m *QuerySecurityContextTokenRequest) Decode(r *wire.Reader) { m.Context = r.ReadHandle() }

// QuerySecurityContextTokenResponse returns the token handle.
type QuerySecurityContextTokenResponse struct {
	Token wire.Handle
}

func (*QuerySecurityContextTokenResponse) FunctionID() FunctionID {
	return FuncQuerySecurityContextToken
}
func (m *QuerySecurityContextTokenResponse) Encode(w *wire.Writer) { w.WriteHandle(m.Token) }
func (m *QuerySecurityContextTokenResponse) Decode(r *wire.Reader) { m.Token = r.ReadHandle() }
