package ntlm

import (
	"crypto/hmac"
	"crypto/rc4"
	"encoding/binary"
)

// SignatureSize is the size of an NTLMSSP_MESSAGE_SIGNATURE.
const SignatureSize = 16

const signatureVersion = 1

// sealingHandle is one direction's RC4 stream. The number of keystream bytes
// consumed is tracked so an exported context can resume at the same point.
type sealingHandle struct {
	cipher *rc4.Cipher
	used   uint64
}

func newSealingHandle(key []byte, skip uint64) *sealingHandle {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// Sealing keys are always MD5 digests.
		panic(err)
	}
	h := &sealingHandle{cipher: c}
	h.discard(skip)
	return h
}

func (h *sealingHandle) xor(dst, src []byte) {
	h.cipher.XORKeyStream(dst, src)
	h.used += uint64(len(src))
}

func (h *sealingHandle) discard(n uint64) {
	var buf [512]byte
	for n > 0 {
		k := min(n, uint64(len(buf)))
		h.xor(buf[:k], buf[:k])
		n -= k
	}
}

type direction struct {
	signKey []byte
	handle  *sealingHandle
}

// sessionSecurity implements NTLM2 session security (extended session
// security) for an established context. [MS-NLMP] Section 3.4
type sessionSecurity struct {
	flags       NegotiateFlag
	exportedKey []byte
	initiator   bool
	out, in     direction
}

// newSessionSecurity derives per-direction keys. outUsed and inUsed are the
// keystream offsets to resume from; both are zero for a fresh context.
func newSessionSecurity(exportedKey []byte, flags NegotiateFlag, initiator bool, outUsed, inUsed uint64) *sessionSecurity {
	s := &sessionSecurity{
		flags:       flags,
		exportedKey: exportedKey,
		initiator:   initiator,
	}
	// The initiator sends with client-to-server keys.
	s.out = direction{
		signKey: signKey(exportedKey, initiator),
		handle:  newSealingHandle(sealKey(exportedKey, flags, initiator), outUsed),
	}
	s.in = direction{
		signKey: signKey(exportedKey, !initiator),
		handle:  newSealingHandle(sealKey(exportedKey, flags, !initiator), inUsed),
	}
	return s
}

// mac computes Version | Checksum | SeqNum where Checksum is the first eight
// bytes of HMAC_MD5(SigningKey, SeqNum | Message), RC4-encrypted with the
// direction's sealing handle when key exchange was negotiated.
func (s *sessionSecurity) mac(d *direction, seq uint32, msg []byte) [SignatureSize]byte {
	var seqBytes [4]byte
	binary.LittleEndian.PutUint32(seqBytes[:], seq)
	checksum := hmacMD5(d.signKey, seqBytes[:], msg)[:8]
	if s.flags.Has(FlagKeyExchange) {
		d.handle.xor(checksum, checksum)
	}

	var sig [SignatureSize]byte
	binary.LittleEndian.PutUint32(sig[0:], signatureVersion)
	copy(sig[4:12], checksum)
	copy(sig[12:], seqBytes[:])
	return sig
}

func (s *sessionSecurity) sign(seq uint32, msg []byte) [SignatureSize]byte {
	return s.mac(&s.out, seq, msg)
}

func (s *sessionSecurity) verify(seq uint32, msg, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	want := s.mac(&s.in, seq, msg)
	return hmac.Equal(want[:], sig)
}

// seal encrypts each part in place with the outbound handle and returns the
// signature over the concatenated plaintext.
func (s *sessionSecurity) seal(seq uint32, plaintext []byte, parts [][]byte) [SignatureSize]byte {
	for _, p := range parts {
		s.out.handle.xor(p, p)
	}
	return s.sign(seq, plaintext)
}

// unseal decrypts each part in place with the inbound handle. The caller
// verifies the signature over the resulting plaintext.
func (s *sessionSecurity) unseal(parts [][]byte) {
	for _, p := range parts {
		s.in.handle.xor(p, p)
	}
}
