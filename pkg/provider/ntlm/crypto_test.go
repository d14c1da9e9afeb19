package ntlm

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Test vectors from [MS-NLMP] Section 4.2.1 and 4.2.4.

const (
	vecUser     = "User"
	vecDomain   = "Domain"
	vecPassword = "Password"
)

var (
	vecServerChallenge = [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	vecClientChallenge = [8]byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
	vecRandomKey       = bytes.Repeat([]byte{0x55}, 16)
)

func vecTargetInfo() []byte {
	return BuildTargetInfo([]AvPair{
		{ID: AvNbDomainName, Value: encodeUTF16("Domain")},
		{ID: AvNbComputerName, Value: encodeUTF16("Server")},
	})
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestNTHash(t *testing.T) {
	got := NTHash(vecPassword)
	want := mustHex(t, "a4f49c406510bdcab6824ee7c30fd852")
	if !bytes.Equal(got[:], want) {
		t.Errorf("NTHash() = %x, expected %x", got, want)
	}
}

func TestParseNTHash(t *testing.T) {
	got, err := ParseNTHash("A4F49C406510BDCAB6824EE7C30FD852")
	if err != nil {
		t.Fatalf("ParseNTHash() error = %v", err)
	}
	if got != NTHash(vecPassword) {
		t.Errorf("ParseNTHash() = %x", got)
	}

	if _, err := ParseNTHash("a4f4"); err == nil {
		t.Error("ParseNTHash(short) expected error")
	}
	if _, err := ParseNTHash("zz"); err == nil {
		t.Error("ParseNTHash(non-hex) expected error")
	}
}

func TestNTOWFv2(t *testing.T) {
	got := ntowfv2(NTHash(vecPassword), vecUser, vecDomain)
	want := mustHex(t, "0c868a403bfd7a93a3001ef22ef02e3f")
	if !bytes.Equal(got, want) {
		t.Errorf("ntowfv2() = %x, expected %x", got, want)
	}
}

func TestComputeNTLMv2(t *testing.T) {
	r := computeNTLMv2(NTHash(vecPassword), vecUser, vecDomain,
		vecServerChallenge, vecClientChallenge, 0, vecTargetInfo(), false)

	if want := mustHex(t, "68cd0ab851e51c96aabc927bebef6a1c"); !bytes.Equal(r.nt[:16], want) {
		t.Errorf("NTProofStr = %x, expected %x", r.nt[:16], want)
	}
	if want := mustHex(t, "8de40ccadbc14a82f15cb0ad0de95ca3"); !bytes.Equal(r.sessionBaseKey, want) {
		t.Errorf("SessionBaseKey = %x, expected %x", r.sessionBaseKey, want)
	}
	if want := mustHex(t, "86c35097ac9cec102554764a57cccc19aaaaaaaaaaaaaaaa"); !bytes.Equal(r.lm, want) {
		t.Errorf("LMv2 = %x, expected %x", r.lm, want)
	}
}

func TestComputeNTLMv2WithServerTimeZeroesLM(t *testing.T) {
	r := computeNTLMv2(NTHash(vecPassword), vecUser, vecDomain,
		vecServerChallenge, vecClientChallenge, 0, vecTargetInfo(), true)
	if !bytes.Equal(r.lm, make([]byte, 24)) {
		t.Errorf("LM = %x, expected Z(24)", r.lm)
	}
}

func TestVerifyNTLMv2(t *testing.T) {
	hash := NTHash(vecPassword)
	r := computeNTLMv2(hash, vecUser, vecDomain, vecServerChallenge, vecClientChallenge, 0, vecTargetInfo(), false)

	key, ok := verifyNTLMv2(hash, vecUser, vecDomain, vecServerChallenge, r.nt)
	if !ok {
		t.Fatal("verifyNTLMv2() rejected a valid response")
	}
	if !bytes.Equal(key, r.sessionBaseKey) {
		t.Errorf("session key = %x, expected %x", key, r.sessionBaseKey)
	}

	// User names are case-insensitive; domains are not folded.
	if _, ok := verifyNTLMv2(hash, "USER", vecDomain, vecServerChallenge, r.nt); !ok {
		t.Error("verifyNTLMv2() should fold the user name")
	}
	if _, ok := verifyNTLMv2(NTHash("wrong"), vecUser, vecDomain, vecServerChallenge, r.nt); ok {
		t.Error("verifyNTLMv2() accepted the wrong password")
	}
	other := vecServerChallenge
	other[0] ^= 0xff
	if _, ok := verifyNTLMv2(hash, vecUser, vecDomain, other, r.nt); ok {
		t.Error("verifyNTLMv2() accepted a different server challenge")
	}
	if _, ok := verifyNTLMv2(hash, vecUser, vecDomain, vecServerChallenge, r.nt[:20]); ok {
		t.Error("verifyNTLMv2() accepted a truncated response")
	}
}

func TestEncryptedRandomSessionKey(t *testing.T) {
	base := mustHex(t, "8de40ccadbc14a82f15cb0ad0de95ca3")
	got := rc4Once(base, vecRandomKey)
	want := mustHex(t, "c5dad2544fc9799094ce1ce90bc9d03e")
	if !bytes.Equal(got, want) {
		t.Errorf("EncryptedRandomSessionKey = %x, expected %x", got, want)
	}
	if back := rc4Once(base, got); !bytes.Equal(back, vecRandomKey) {
		t.Errorf("decrypted key = %x, expected %x", back, vecRandomKey)
	}
}

func TestSealNTLMv2Vector(t *testing.T) {
	flags := FlagExtendedSecurity | Flag128 | FlagKeyExchange | FlagSign | FlagSeal
	s := newSessionSecurity(vecRandomKey, flags, true, 0, 0)

	plaintext := encodeUTF16("Plaintext")
	sealed := append([]byte(nil), plaintext...)
	sig := s.seal(0, plaintext, [][]byte{sealed})

	if want := mustHex(t, "54e50165bf1936dc996020c1811b0f06fb5f"); !bytes.Equal(sealed, want) {
		t.Errorf("sealed = %x, expected %x", sealed, want)
	}
	if want := mustHex(t, "010000007fb38ec5c55d497600000000"); !bytes.Equal(sig[:], want) {
		t.Errorf("signature = %x, expected %x", sig, want)
	}
}

func TestSessionSecurityBothDirections(t *testing.T) {
	flags := FlagExtendedSecurity | Flag128 | FlagKeyExchange | FlagSign | FlagSeal
	client := newSessionSecurity(vecRandomKey, flags, true, 0, 0)
	server := newSessionSecurity(vecRandomKey, flags, false, 0, 0)

	for seq := uint32(0); seq < 3; seq++ {
		msg := []byte("client to server")
		buf := append([]byte(nil), msg...)
		sig := client.seal(seq, msg, [][]byte{buf})
		if bytes.Equal(buf, msg) {
			t.Fatal("seal left the message in the clear")
		}
		server.unseal([][]byte{buf})
		if !bytes.Equal(buf, msg) {
			t.Fatalf("unsealed = %q, expected %q", buf, msg)
		}
		if !server.verify(seq, buf, sig[:]) {
			t.Fatalf("server rejected seq %d", seq)
		}
	}

	reply := []byte("server to client")
	sig := server.sign(7, reply)
	if !client.verify(7, reply, sig[:]) {
		t.Error("client rejected server signature")
	}
}

func TestSessionSecurityResume(t *testing.T) {
	flags := FlagExtendedSecurity | Flag128 | FlagKeyExchange | FlagSign | FlagSeal
	client := newSessionSecurity(vecRandomKey, flags, true, 0, 0)
	server := newSessionSecurity(vecRandomKey, flags, false, 0, 0)

	sig := client.sign(0, []byte("first"))
	if !server.verify(0, []byte("first"), sig[:]) {
		t.Fatal("verify first")
	}

	// A server rebuilt at the same keystream offsets keeps verifying.
	resumed := newSessionSecurity(vecRandomKey, flags, false, server.out.handle.used, server.in.handle.used)
	sig = client.sign(1, []byte("second"))
	if !resumed.verify(1, []byte("second"), sig[:]) {
		t.Error("resumed session rejected the next signature")
	}
}

func TestSealKeyTruncation(t *testing.T) {
	k128 := sealKey(vecRandomKey, Flag128, true)
	k56 := sealKey(vecRandomKey, Flag56, true)
	k40 := sealKey(vecRandomKey, 0, true)
	if bytes.Equal(k128, k56) || bytes.Equal(k56, k40) {
		t.Error("seal keys should differ by strength")
	}
	if bytes.Equal(sealKey(vecRandomKey, Flag128, true), sealKey(vecRandomKey, Flag128, false)) {
		t.Error("seal keys should differ by direction")
	}
}
