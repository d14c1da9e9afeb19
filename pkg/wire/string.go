package wire

import (
	"encoding/binary"
	"log/slog"
	"unicode/utf16"
)

// Encoding is the character encoding flag carried in the top bit of a
// string's length field.
type Encoding uint16

const (
	EncodingANSI Encoding = 0x0000
	EncodingWide Encoding = 0x8000
)

const (
	// StringLengthMask extracts the byte length from an encoded length field.
	StringLengthMask = 0x7FFF

	// MaxStringLength is the longest byte length a String can carry. Longer
	// buffers are truncated to this length on write.
	MaxStringLength = StringLengthMask
)

func (e Encoding) String() string {
	if e == EncodingWide {
		return "wide"
	}
	return "ansi"
}

// String is a byte string tagged with its character encoding. The bytes are
// never interpreted by the codec. A zero-length String is valid and distinct
// from nothing only by the caller's convention: the protocol has no null.
type String struct {
	Encoding Encoding
	Buffer   []byte
}

// NewString returns an ANSI String holding the bytes of s.
func NewString(s string) String {
	return String{Encoding: EncodingANSI, Buffer: []byte(s)}
}

// NewWideString returns a wide String holding s as UTF-16LE.
func NewWideString(s string) String {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2*i:], u)
	}
	return String{Encoding: EncodingWide, Buffer: buf}
}

// Text decodes the buffer into a Go string according to its encoding.
func (s String) Text() string {
	if s.Encoding != EncodingWide {
		return string(s.Buffer)
	}
	units := make([]uint16, len(s.Buffer)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(s.Buffer[2*i:])
	}
	return string(utf16.Decode(units))
}

// Len returns the number of bytes that will be written for s.
func (s String) Len() int {
	return min(len(s.Buffer), MaxStringLength)
}

// EncodedSize returns the full encoded size including the length field.
func (s String) EncodedSize() int {
	return 2 + s.Len()
}

// LengthField returns the 16-bit length field written for s.
func (s String) LengthField() uint16 {
	return uint16(s.Len()) | uint16(s.Encoding&EncodingWide)
}

// LogValue reports only shape so string contents never reach logs.
func (s String) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("len", s.Len()),
		slog.String("encoding", s.Encoding.String()),
	)
}

// ReadString reads a length-and-encoding prefixed string.
func (r *Reader) ReadString() String {
	field := r.ReadUint16()
	if r.err != nil {
		return String{}
	}
	enc := Encoding(field & uint16(EncodingWide))
	buf := r.ReadBytes(int(field & StringLengthMask))
	if r.err != nil {
		return String{}
	}
	return String{Encoding: enc, Buffer: buf}
}

// WriteString writes s, truncating its buffer to MaxStringLength bytes.
func (w *Writer) WriteString(s String) {
	w.WriteUint16(s.LengthField())
	w.WriteBytes(s.Buffer[:s.Len()])
}

// Auth identity flags, matching the SEC_WINNT_AUTH_IDENTITY values.
const (
	AuthIdentityANSI    uint32 = 0x1
	AuthIdentityUnicode uint32 = 0x2
)

// AuthIdentity carries the credentials presented when acquiring a handle.
// Password bytes must not be logged; LogValue redacts them and Clear wipes
// them once the identity has been consumed.
type AuthIdentity struct {
	Flags    uint32
	User     String
	Domain   String
	Password String
}

// EncodedSize returns the number of bytes WriteAuthIdentity emits.
func (a *AuthIdentity) EncodedSize() int {
	return 4 + a.User.EncodedSize() + a.Domain.EncodedSize() + a.Password.EncodedSize()
}

// Clear zeroes the password bytes in place.
func (a *AuthIdentity) Clear() {
	clear(a.Password.Buffer)
}

// LogValue implements slog.LogValuer.
func (a AuthIdentity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("flags", uint64(a.Flags)),
		slog.String("user", a.User.Text()),
		slog.String("domain", a.Domain.Text()),
		slog.String("password", "[redacted]"),
	)
}

// ReadAuthIdentity reads flags followed by user, domain and password.
func (r *Reader) ReadAuthIdentity() AuthIdentity {
	var a AuthIdentity
	a.Flags = r.ReadUint32()
	a.User = r.ReadString()
	a.Domain = r.ReadString()
	a.Password = r.ReadString()
	return a
}

// WriteAuthIdentity writes flags followed by user, domain and password.
func (w *Writer) WriteAuthIdentity(a *AuthIdentity) {
	w.WriteUint32(a.Flags)
	w.WriteString(a.User)
	w.WriteString(a.Domain)
	w.WriteString(a.Password)
}
