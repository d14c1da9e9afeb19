package protocol

import "github.com/marmos91/netsspi/pkg/wire"

// QOPWrapNoEncrypt asks EncryptMessage to sign without sealing.
const QOPWrapNoEncrypt uint32 = 0x80000001

// MakeSignatureRequest signs the data buffers of Message. The provider
// writes the signature into the token buffer.
type MakeSignatureRequest struct {
	Context wire.Handle
	QOP     uint32
	Message wire.SecBufferDesc
	SeqNo   uint32
}

func (*MakeSignatureRequest) FunctionID() FunctionID { return FuncMakeSignature }

func (m *MakeSignatureRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteUint32(m.QOP)
	w.WriteSecBufferDesc(m.Message)
	w.WriteUint32(m.SeqNo)
}

func (m *MakeSignatureRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.QOP = r.ReadUint32()
	m.Message = r.ReadSecBufferDesc()
	m.SeqNo = r.ReadUint32()
}

// MakeSignatureResponse returns Message with the signature filled in.
type MakeSignatureResponse struct {
	Message wire.SecBufferDesc
}

func (*MakeSignatureResponse) FunctionID() FunctionID  { return FuncMakeSignature }
func (m *MakeSignatureResponse) Encode(w *wire.Writer) { w.WriteSecBufferDesc(m.Message) }
func (m *MakeSignatureResponse) Decode(r *wire.Reader) { m.Message = r.ReadSecBufferDesc() }

// VerifySignatureRequest checks the signature in the token buffer of Message.
type VerifySignatureRequest struct {
	Context wire.Handle
	Message wire.SecBufferDesc
	SeqNo   uint32
}

func (*VerifySignatureRequest) FunctionID() FunctionID { return FuncVerifySignature }

func (m *VerifySignatureRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteSecBufferDesc(m.Message)
	w.WriteUint32(m.SeqNo)
}

func (m *VerifySignatureRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Message = r.ReadSecBufferDesc()
	m.SeqNo = r.ReadUint32()
}

// VerifySignatureResponse reports the QOP the signature was made with.
type VerifySignatureResponse struct {
	QOP uint32
}

func (*VerifySignatureResponse) FunctionID() FunctionID  { return FuncVerifySignature }
func (m *VerifySignatureResponse) Encode(w *wire.Writer) { w.WriteUint32(m.QOP) }
func (m *VerifySignatureResponse) Decode(r *wire.Reader) { m.QOP = r.ReadUint32() }

// EncryptMessageRequest seals the data buffers of Message. SeqNo is assigned
// by the caller and passed to the provider unvalidated.
type EncryptMessageRequest struct {
	Context wire.Handle
	QOP     uint32
	Message wire.SecBufferDesc
	SeqNo   uint32
}

func (*EncryptMessageRequest) FunctionID() FunctionID { return FuncEncryptMessage }

func (m *EncryptMessageRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteUint32(m.QOP)
	w.WriteSecBufferDesc(m.Message)
	w.WriteUint32(m.SeqNo)
}

func (m *EncryptMessageRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.QOP = r.ReadUint32()
	m.Message = r.ReadSecBufferDesc()
	m.SeqNo = r.ReadUint32()
}

// EncryptMessageResponse returns the sealed Message.
type EncryptMessageResponse struct {
	Message wire.SecBufferDesc
}

func (*EncryptMessageResponse) FunctionID() FunctionID  { return FuncEncryptMessage }
func (m *EncryptMessageResponse) Encode(w *wire.Writer) { w.WriteSecBufferDesc(m.Message) }
func (m *EncryptMessageResponse) Decode(r *wire.Reader) { m.Message = r.ReadSecBufferDesc() }

// DecryptMessageRequest unseals Message in place.
type DecryptMessageRequest struct {
	Context wire.Handle
	Message wire.SecBufferDesc
	SeqNo   uint32
}

func (*DecryptMessageRequest) FunctionID() FunctionID { return FuncDecryptMessage }

func (m *DecryptMessageRequest) Encode(w *wire.Writer) {
	w.WriteHandle(m.Context)
	w.WriteSecBufferDesc(m.Message)
	w.WriteUint32(m.SeqNo)
}

func (m *DecryptMessageRequest) Decode(r *wire.Reader) {
	m.Context = r.ReadHandle()
	m.Message = r.ReadSecBufferDesc()
	m.SeqNo = r.ReadUint32()
}

// DecryptMessageResponse returns the plaintext Message and the QOP used.
type DecryptMessageResponse struct {
	Message wire.SecBufferDesc
	QOP     uint32
}

func (*DecryptMessageResponse) FunctionID() FunctionID { return FuncDecryptMessage }

func (m *DecryptMessageResponse) Encode(w *wire.Writer) {
	w.WriteSecBufferDesc(m.Message)
	w.WriteUint32(m.QOP)
}

func (m *DecryptMessageResponse) Decode(r *wire.Reader) {
	m.Message = r.ReadSecBufferDesc()
	m.QOP = r.ReadUint32()
}
