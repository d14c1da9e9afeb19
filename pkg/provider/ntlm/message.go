package ntlm

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// =============================================================================
// NTLM Message Types
// =============================================================================

// MessageType identifies the three messages in the NTLM handshake.
// [MS-NLMP] Section 2.2.1
type MessageType uint32

const (
	// Negotiate (Type 1) is sent by the initiator to open the handshake.
	Negotiate MessageType = 1

	// Challenge (Type 2) is the acceptor's answer carrying the server challenge.
	Challenge MessageType = 2

	// Authenticate (Type 3) carries the initiator's challenge response.
	Authenticate MessageType = 3
)

// Signature is the 8-byte prefix of every NTLM message: "NTLMSSP\0".
var Signature = []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

const (
	signatureOffset   = 0
	messageTypeOffset = 8
	headerSize        = 12
)

// NEGOTIATE message layout. [MS-NLMP] Section 2.2.1.1
const (
	negotiateFlagsOffset       = 12
	negotiateDomainOffset      = 16
	negotiateWorkstationOffset = 24
	negotiateBaseSize          = 32
)

// CHALLENGE message layout. [MS-NLMP] Section 2.2.1.2
const (
	challengeTargetNameOffset = 12
	challengeFlagsOffset      = 20
	challengeServerChalOffset = 24
	challengeTargetInfoOffset = 40
	challengeVersionOffset    = 48
	challengeBaseSize         = 56
)

// AUTHENTICATE message layout. [MS-NLMP] Section 2.2.1.3
const (
	authLmResponseOffset     = 12
	authNtResponseOffset     = 20
	authDomainNameOffset     = 28
	authUserNameOffset       = 36
	authWorkstationOffset    = 44
	authSessionKeyOffset     = 52
	authNegotiateFlagsOffset = 60
	authVersionOffset        = 64
	authBaseSize             = 72
)

const serverChallengeSize = 8

// =============================================================================
// NTLM Negotiate Flags
// =============================================================================

// NegotiateFlag controls authentication behavior and capabilities.
// [MS-NLMP] Section 2.2.2.5
type NegotiateFlag uint32

const (
	FlagUnicode             NegotiateFlag = 0x00000001
	FlagOEM                 NegotiateFlag = 0x00000002
	FlagRequestTarget       NegotiateFlag = 0x00000004
	FlagSign                NegotiateFlag = 0x00000010
	FlagSeal                NegotiateFlag = 0x00000020
	FlagLMKey               NegotiateFlag = 0x00000080
	FlagNTLM                NegotiateFlag = 0x00000200
	FlagAnonymous           NegotiateFlag = 0x00000800
	FlagDomainSupplied      NegotiateFlag = 0x00001000
	FlagWorkstationSupplied NegotiateFlag = 0x00002000
	FlagAlwaysSign          NegotiateFlag = 0x00008000
	FlagTargetTypeDomain    NegotiateFlag = 0x00010000
	FlagTargetTypeServer    NegotiateFlag = 0x00020000
	FlagExtendedSecurity    NegotiateFlag = 0x00080000
	FlagTargetInfo          NegotiateFlag = 0x00800000
	FlagVersion             NegotiateFlag = 0x02000000
	Flag128                 NegotiateFlag = 0x20000000
	FlagKeyExchange         NegotiateFlag = 0x40000000
	Flag56                  NegotiateFlag = 0x80000000
)

// Has reports whether every bit of f2 is set in f.
func (f NegotiateFlag) Has(f2 NegotiateFlag) bool {
	return f&f2 == f2
}

// defaultFlags is what an initiator offers and an acceptor is willing to
// grant. Session security always uses extended session security with
// 128-bit keys and key exchange.
const defaultFlags = FlagUnicode |
	FlagRequestTarget |
	FlagSign |
	FlagSeal |
	FlagNTLM |
	FlagAlwaysSign |
	FlagExtendedSecurity |
	Flag128 |
	FlagKeyExchange |
	Flag56

// =============================================================================
// NTLM Message Detection
// =============================================================================

// IsValid checks if the buffer starts with the NTLMSSP signature.
func IsValid(buf []byte) bool {
	if len(buf) < headerSize {
		return false
	}
	return bytes.Equal(buf[signatureOffset:signatureOffset+8], Signature)
}

// GetMessageType returns the NTLM message type from a buffer, or 0 if the
// buffer is too short to hold a header.
func GetMessageType(buf []byte) MessageType {
	if len(buf) < headerSize {
		return 0
	}
	return MessageType(binary.LittleEndian.Uint32(buf[messageTypeOffset : messageTypeOffset+4]))
}

func checkHeader(buf []byte, min int, want MessageType) error {
	if len(buf) < min {
		return ErrMessageTooShort
	}
	if !IsValid(buf) {
		return ErrInvalidSignature
	}
	if GetMessageType(buf) != want {
		return ErrWrongMessageType
	}
	return nil
}

// =============================================================================
// Payload fields
// =============================================================================

// readField returns the bytes a Len/MaxLen/Offset triple at off points to.
// Out-of-range fields are an error rather than silently empty.
func readField(buf []byte, off int) ([]byte, error) {
	n := int(binary.LittleEndian.Uint16(buf[off : off+2]))
	start := int(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
	if n == 0 {
		return nil, nil
	}
	if start < 0 || start > len(buf) || n > len(buf)-start {
		return nil, ErrFieldOutOfRange
	}
	out := make([]byte, n)
	copy(out, buf[start:start+n])
	return out, nil
}

// payloadBuilder lays out variable-length fields after a fixed header and
// fills in their Len/MaxLen/Offset triples.
type payloadBuilder struct {
	msg []byte
}

func newPayloadBuilder(typ MessageType, fixed int) *payloadBuilder {
	msg := make([]byte, fixed)
	copy(msg[signatureOffset:], Signature)
	binary.LittleEndian.PutUint32(msg[messageTypeOffset:], uint32(typ))
	return &payloadBuilder{msg: msg}
}

func (b *payloadBuilder) putUint32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.msg[off:], v)
}

func (b *payloadBuilder) putBytes(off int, v []byte) {
	copy(b.msg[off:], v)
}

func (b *payloadBuilder) field(off int, data []byte) {
	binary.LittleEndian.PutUint16(b.msg[off:], uint16(len(data)))
	binary.LittleEndian.PutUint16(b.msg[off+2:], uint16(len(data)))
	binary.LittleEndian.PutUint32(b.msg[off+4:], uint32(len(b.msg)))
	b.msg = append(b.msg, data...)
}

// =============================================================================
// NEGOTIATE
// =============================================================================

// NegotiateMessage is a parsed NTLM Type 1 message.
type NegotiateMessage struct {
	Flags       NegotiateFlag
	Domain      string
	Workstation string
}

// BuildNegotiate creates an NTLM Type 1 message. Domain and workstation are
// OEM strings and are only included when non-empty.
func BuildNegotiate(m *NegotiateMessage) []byte {
	flags := m.Flags
	if m.Domain != "" {
		flags |= FlagDomainSupplied
	}
	if m.Workstation != "" {
		flags |= FlagWorkstationSupplied
	}
	b := newPayloadBuilder(Negotiate, negotiateBaseSize)
	b.putUint32(negotiateFlagsOffset, uint32(flags))
	b.field(negotiateDomainOffset, []byte(m.Domain))
	b.field(negotiateWorkstationOffset, []byte(m.Workstation))
	return b.msg
}

// ParseNegotiate parses an NTLM Type 1 message. Older initiators send the
// 16-byte form without domain and workstation fields.
func ParseNegotiate(buf []byte) (*NegotiateMessage, error) {
	if err := checkHeader(buf, negotiateFlagsOffset+4, Negotiate); err != nil {
		return nil, err
	}
	m := &NegotiateMessage{
		Flags: NegotiateFlag(binary.LittleEndian.Uint32(buf[negotiateFlagsOffset:])),
	}
	if len(buf) < negotiateBaseSize {
		return m, nil
	}
	if m.Flags.Has(FlagDomainSupplied) {
		d, err := readField(buf, negotiateDomainOffset)
		if err != nil {
			return nil, err
		}
		m.Domain = string(d)
	}
	if m.Flags.Has(FlagWorkstationSupplied) {
		ws, err := readField(buf, negotiateWorkstationOffset)
		if err != nil {
			return nil, err
		}
		m.Workstation = string(ws)
	}
	return m, nil
}

// =============================================================================
// CHALLENGE
// =============================================================================

// ChallengeMessage is an NTLM Type 2 message.
type ChallengeMessage struct {
	Flags           NegotiateFlag
	ServerChallenge [serverChallengeSize]byte
	TargetName      string
	TargetInfo      []byte
}

// BuildChallenge encodes an NTLM Type 2 message. The target name is encoded
// as UTF-16LE when FlagUnicode is set.
//
//	Offset  Size  Field
//	0       8     Signature
//	8       4     MessageType (2)
//	12      8     TargetNameFields
//	20      4     NegotiateFlags
//	24      8     ServerChallenge
//	32      8     Reserved
//	40      8     TargetInfoFields
//	48      8     Version
//	56      var   Payload
func BuildChallenge(m *ChallengeMessage) []byte {
	b := newPayloadBuilder(Challenge, challengeBaseSize)
	b.putUint32(challengeFlagsOffset, uint32(m.Flags))
	b.putBytes(challengeServerChalOffset, m.ServerChallenge[:])
	b.field(challengeTargetNameOffset, encodeString(m.TargetName, m.Flags.Has(FlagUnicode)))
	b.field(challengeTargetInfoOffset, m.TargetInfo)
	return b.msg
}

// ParseChallenge parses an NTLM Type 2 message.
func ParseChallenge(buf []byte) (*ChallengeMessage, error) {
	if err := checkHeader(buf, challengeVersionOffset, Challenge); err != nil {
		return nil, err
	}
	m := &ChallengeMessage{
		Flags: NegotiateFlag(binary.LittleEndian.Uint32(buf[challengeFlagsOffset:])),
	}
	copy(m.ServerChallenge[:], buf[challengeServerChalOffset:])

	name, err := readField(buf, challengeTargetNameOffset)
	if err != nil {
		return nil, err
	}
	m.TargetName = decodeString(name, m.Flags.Has(FlagUnicode))

	if m.TargetInfo, err = readField(buf, challengeTargetInfoOffset); err != nil {
		return nil, err
	}
	return m, nil
}

// =============================================================================
// AUTHENTICATE
// =============================================================================

// AuthenticateMessage is an NTLM Type 3 message.
type AuthenticateMessage struct {
	LmChallengeResponse       []byte
	NtChallengeResponse       []byte
	Domain                    string
	Username                  string
	Workstation               string
	EncryptedRandomSessionKey []byte
	NegotiateFlags            NegotiateFlag
}

// IsAnonymous reports whether the message carries the anonymous form:
// empty user name with an empty NT response.
func (m *AuthenticateMessage) IsAnonymous() bool {
	return m.NegotiateFlags.Has(FlagAnonymous) ||
		(m.Username == "" && len(m.NtChallengeResponse) == 0)
}

// BuildAuthenticate encodes an NTLM Type 3 message.
func BuildAuthenticate(m *AuthenticateMessage) []byte {
	unicode := m.NegotiateFlags.Has(FlagUnicode)
	b := newPayloadBuilder(Authenticate, authBaseSize)
	b.putUint32(authNegotiateFlagsOffset, uint32(m.NegotiateFlags))
	b.field(authLmResponseOffset, m.LmChallengeResponse)
	b.field(authNtResponseOffset, m.NtChallengeResponse)
	b.field(authDomainNameOffset, encodeString(m.Domain, unicode))
	b.field(authUserNameOffset, encodeString(m.Username, unicode))
	b.field(authWorkstationOffset, encodeString(m.Workstation, unicode))
	b.field(authSessionKeyOffset, m.EncryptedRandomSessionKey)
	return b.msg
}

// ParseAuthenticate parses an NTLM Type 3 message. Every payload field must
// lie inside the buffer.
func ParseAuthenticate(buf []byte) (*AuthenticateMessage, error) {
	if err := checkHeader(buf, authVersionOffset, Authenticate); err != nil {
		return nil, err
	}

	m := &AuthenticateMessage{
		NegotiateFlags: NegotiateFlag(binary.LittleEndian.Uint32(buf[authNegotiateFlagsOffset:])),
	}
	unicode := m.NegotiateFlags.Has(FlagUnicode)

	var err error
	if m.LmChallengeResponse, err = readField(buf, authLmResponseOffset); err != nil {
		return nil, err
	}
	if m.NtChallengeResponse, err = readField(buf, authNtResponseOffset); err != nil {
		return nil, err
	}
	if m.EncryptedRandomSessionKey, err = readField(buf, authSessionKeyOffset); err != nil {
		return nil, err
	}

	strs := []struct {
		off int
		dst *string
	}{
		{authDomainNameOffset, &m.Domain},
		{authUserNameOffset, &m.Username},
		{authWorkstationOffset, &m.Workstation},
	}
	for _, s := range strs {
		raw, err := readField(buf, s.off)
		if err != nil {
			return nil, err
		}
		*s.dst = decodeString(raw, unicode)
	}
	return m, nil
}

// =============================================================================
// Strings
// =============================================================================

// encodeUTF16 returns s as UTF-16LE bytes.
func encodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

func encodeString(s string, unicode bool) []byte {
	if unicode {
		return encodeUTF16(s)
	}
	return []byte(s)
}

// decodeString decodes either UTF-16LE or OEM bytes. A trailing odd byte in
// UTF-16 input is dropped.
func decodeString(buf []byte, unicode bool) string {
	if !unicode {
		return string(buf)
	}
	units := make([]uint16, len(buf)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(buf[2*i:])
	}
	return string(utf16.Decode(units))
}
