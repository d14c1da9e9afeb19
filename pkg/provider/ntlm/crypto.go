package ntlm

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/md4" //nolint:staticcheck // MD4 is required for NTLM protocol compatibility
)

// NTHashSize is the size of an NT one-way function result.
const NTHashSize = 16

// NTHash computes MD4(UTF-16LE(password)). [MS-NLMP] Section 3.3.1
func NTHash(password string) [NTHashSize]byte {
	h := md4.New()
	h.Write(encodeUTF16(password))
	var ntHash [NTHashSize]byte
	copy(ntHash[:], h.Sum(nil))
	return ntHash
}

// ParseNTHash decodes a 32-character hex NT hash.
func ParseNTHash(s string) ([NTHashSize]byte, error) {
	var out [NTHashSize]byte
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return out, fmt.Errorf("ntlm: decode nt hash: %w", err)
	}
	if len(b) != NTHashSize {
		return out, fmt.Errorf("ntlm: nt hash must be %d bytes, got %d", NTHashSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func hmacMD5(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(md5.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// ntowfv2 computes HMAC_MD5(NTHash, UNICODE(Uppercase(user) + domain)).
// [MS-NLMP] Section 3.3.2
func ntowfv2(ntHash [NTHashSize]byte, user, domain string) []byte {
	return hmacMD5(ntHash[:], encodeUTF16(strings.ToUpper(user)+domain))
}

// ntlmv2ClientBlob builds the "temp" structure hashed into NTProofStr:
// RespType, HiRespType, Z(6), Time, ClientChallenge, Z(4), TargetInfo, Z(4).
func ntlmv2ClientBlob(timestamp uint64, clientChallenge [8]byte, targetInfo []byte) []byte {
	blob := make([]byte, 0, 28+len(targetInfo)+4)
	blob = append(blob, 0x01, 0x01, 0, 0, 0, 0, 0, 0)
	blob = binary.LittleEndian.AppendUint64(blob, timestamp)
	blob = append(blob, clientChallenge[:]...)
	blob = append(blob, 0, 0, 0, 0)
	blob = append(blob, targetInfo...)
	return append(blob, 0, 0, 0, 0)
}

// ntlmv2Response is the result of the initiator's NTLMv2 computation.
type ntlmv2Response struct {
	nt             []byte
	lm             []byte
	sessionBaseKey []byte
}

// computeNTLMv2 produces the NT and LM challenge responses and the session
// base key. When the target info carries a timestamp the LM response is
// Z(24). [MS-NLMP] Section 3.3.2
func computeNTLMv2(ntHash [NTHashSize]byte, user, domain string, serverChallenge, clientChallenge [8]byte, timestamp uint64, targetInfo []byte, haveServerTime bool) ntlmv2Response {
	key := ntowfv2(ntHash, user, domain)
	blob := ntlmv2ClientBlob(timestamp, clientChallenge, targetInfo)
	proof := hmacMD5(key, serverChallenge[:], blob)

	r := ntlmv2Response{
		nt:             append(append([]byte{}, proof...), blob...),
		sessionBaseKey: hmacMD5(key, proof),
	}
	if haveServerTime {
		r.lm = make([]byte, 24)
	} else {
		r.lm = append(hmacMD5(key, serverChallenge[:], clientChallenge[:]), clientChallenge[:]...)
	}
	return r
}

// verifyNTLMv2 checks an NTLMv2 NtChallengeResponse against ntHash and
// returns the session base key on success.
func verifyNTLMv2(ntHash [NTHashSize]byte, user, domain string, serverChallenge [8]byte, nt []byte) ([]byte, bool) {
	if len(nt) < md5.Size+28 {
		return nil, false
	}
	key := ntowfv2(ntHash, user, domain)
	proof := hmacMD5(key, serverChallenge[:], nt[md5.Size:])
	if !hmac.Equal(proof, nt[:md5.Size]) {
		return nil, false
	}
	return hmacMD5(key, proof), true
}

// rc4Once encrypts data with a fresh RC4 stream keyed by key.
func rc4Once(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// Key derivation magic constants. [MS-NLMP] Section 3.4.5
var (
	clientSigningMagic = []byte("session key to client-to-server signing key magic constant\x00")
	serverSigningMagic = []byte("session key to server-to-client signing key magic constant\x00")
	clientSealingMagic = []byte("session key to client-to-server sealing key magic constant\x00")
	serverSealingMagic = []byte("session key to server-to-client sealing key magic constant\x00")
)

func md5Sum(parts ...[]byte) []byte {
	h := md5.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// signKey derives SIGNKEY for one direction.
func signKey(exportedSessionKey []byte, clientToServer bool) []byte {
	if clientToServer {
		return md5Sum(exportedSessionKey, clientSigningMagic)
	}
	return md5Sum(exportedSessionKey, serverSigningMagic)
}

// sealKey derives SEALKEY for one direction. Without Flag128 the key is
// truncated to 56 or 40 bits before hashing.
func sealKey(exportedSessionKey []byte, flags NegotiateFlag, clientToServer bool) []byte {
	key := exportedSessionKey
	switch {
	case flags.Has(Flag128):
	case flags.Has(Flag56):
		key = key[:7]
	default:
		key = key[:5]
	}
	if clientToServer {
		return md5Sum(key, clientSealingMagic)
	}
	return md5Sum(key, serverSealingMagic)
}
