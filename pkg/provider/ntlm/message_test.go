package ntlm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// =============================================================================
// Detection Tests
// =============================================================================

func TestSignature(t *testing.T) {
	expected := []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}
	if !bytes.Equal(Signature, expected) {
		t.Errorf("Signature = %v, expected %v", Signature, expected)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected bool
	}{
		{"Negotiate", BuildNegotiate(&NegotiateMessage{Flags: defaultFlags}), true},
		{"Challenge", BuildChallenge(&ChallengeMessage{Flags: FlagUnicode}), true},
		{"Authenticate", BuildAuthenticate(&AuthenticateMessage{}), true},
		{"TooShort", []byte{'N', 'T', 'L', 'M'}, false},
		{"WrongSignature", []byte{'X', 'X', 'X', 'X', 'X', 'X', 'X', 0, 1, 0, 0, 0}, false},
		{"Empty", []byte{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.expected {
				t.Errorf("IsValid() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestGetMessageType(t *testing.T) {
	if got := GetMessageType(BuildNegotiate(&NegotiateMessage{})); got != Negotiate {
		t.Errorf("GetMessageType(negotiate) = %d, expected %d", got, Negotiate)
	}
	if got := GetMessageType([]byte{1, 2, 3}); got != 0 {
		t.Errorf("GetMessageType(short) = %d, expected 0", got)
	}
}

// =============================================================================
// NEGOTIATE Tests
// =============================================================================

func TestNegotiateRoundTrip(t *testing.T) {
	msg := BuildNegotiate(&NegotiateMessage{
		Flags:       defaultFlags,
		Domain:      "CORP",
		Workstation: "WS01",
	})

	got, err := ParseNegotiate(msg)
	if err != nil {
		t.Fatalf("ParseNegotiate() error = %v", err)
	}
	if !got.Flags.Has(defaultFlags | FlagDomainSupplied | FlagWorkstationSupplied) {
		t.Errorf("Flags = 0x%08x, missing requested bits", uint32(got.Flags))
	}
	if got.Domain != "CORP" || got.Workstation != "WS01" {
		t.Errorf("Domain/Workstation = %q/%q, expected CORP/WS01", got.Domain, got.Workstation)
	}
}

func TestParseNegotiateShortForm(t *testing.T) {
	msg := BuildNegotiate(&NegotiateMessage{Flags: FlagUnicode})[:16]

	got, err := ParseNegotiate(msg)
	if err != nil {
		t.Fatalf("ParseNegotiate() error = %v", err)
	}
	if got.Flags != FlagUnicode {
		t.Errorf("Flags = 0x%08x, expected 0x%08x", uint32(got.Flags), uint32(FlagUnicode))
	}
}

func TestParseNegotiateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"TooShort", Signature, ErrMessageTooShort},
		{"WrongType", BuildChallenge(&ChallengeMessage{}), ErrWrongMessageType},
		{"BadSignature", append([]byte("NTLMSSQ\x00"), make([]byte, 24)...), ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNegotiate(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseNegotiate() error = %v, expected %v", err, tt.want)
			}
		})
	}
}

// =============================================================================
// CHALLENGE Tests
// =============================================================================

func TestChallengeRoundTrip(t *testing.T) {
	info := BuildTargetInfo([]AvPair{{ID: AvNbDomainName, Value: encodeUTF16("CORP")}})
	in := &ChallengeMessage{
		Flags:           defaultFlags | FlagTargetInfo,
		ServerChallenge: [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		TargetName:      "CORP",
		TargetInfo:      info,
	}

	msg := BuildChallenge(in)
	if len(msg) < challengeBaseSize {
		t.Fatalf("challenge length = %d, expected at least %d", len(msg), challengeBaseSize)
	}

	got, err := ParseChallenge(msg)
	if err != nil {
		t.Fatalf("ParseChallenge() error = %v", err)
	}
	if got.Flags != in.Flags {
		t.Errorf("Flags = 0x%08x, expected 0x%08x", uint32(got.Flags), uint32(in.Flags))
	}
	if got.ServerChallenge != in.ServerChallenge {
		t.Errorf("ServerChallenge = %x, expected %x", got.ServerChallenge, in.ServerChallenge)
	}
	if got.TargetName != "CORP" {
		t.Errorf("TargetName = %q, expected CORP", got.TargetName)
	}
	if !bytes.Equal(got.TargetInfo, info) {
		t.Errorf("TargetInfo = %x, expected %x", got.TargetInfo, info)
	}
}

func TestChallengeOEMTargetName(t *testing.T) {
	msg := BuildChallenge(&ChallengeMessage{Flags: FlagOEM, TargetName: "WORKGROUP"})
	got, err := ParseChallenge(msg)
	if err != nil {
		t.Fatalf("ParseChallenge() error = %v", err)
	}
	if got.TargetName != "WORKGROUP" {
		t.Errorf("TargetName = %q, expected WORKGROUP", got.TargetName)
	}
}

// =============================================================================
// AUTHENTICATE Tests
// =============================================================================

func TestAuthenticateRoundTrip(t *testing.T) {
	in := &AuthenticateMessage{
		LmChallengeResponse:       make([]byte, 24),
		NtChallengeResponse:       bytes.Repeat([]byte{0xAB}, 64),
		Domain:                    "Domain",
		Username:                  "User",
		Workstation:               "COMPUTER",
		EncryptedRandomSessionKey: bytes.Repeat([]byte{0x55}, 16),
		NegotiateFlags:            defaultFlags,
	}

	got, err := ParseAuthenticate(BuildAuthenticate(in))
	if err != nil {
		t.Fatalf("ParseAuthenticate() error = %v", err)
	}
	if got.Username != "User" || got.Domain != "Domain" || got.Workstation != "COMPUTER" {
		t.Errorf("names = %q/%q/%q", got.Username, got.Domain, got.Workstation)
	}
	if !bytes.Equal(got.NtChallengeResponse, in.NtChallengeResponse) {
		t.Error("NtChallengeResponse mismatch")
	}
	if !bytes.Equal(got.LmChallengeResponse, in.LmChallengeResponse) {
		t.Error("LmChallengeResponse mismatch")
	}
	if !bytes.Equal(got.EncryptedRandomSessionKey, in.EncryptedRandomSessionKey) {
		t.Error("EncryptedRandomSessionKey mismatch")
	}
	if got.IsAnonymous() {
		t.Error("IsAnonymous() = true for a named logon")
	}
}

func TestAuthenticateAnonymous(t *testing.T) {
	msg := BuildAuthenticate(&AuthenticateMessage{
		LmChallengeResponse: []byte{0},
		NegotiateFlags:      FlagUnicode | FlagAnonymous,
	})
	got, err := ParseAuthenticate(msg)
	if err != nil {
		t.Fatalf("ParseAuthenticate() error = %v", err)
	}
	if !got.IsAnonymous() {
		t.Error("IsAnonymous() = false, expected true")
	}
}

func TestParseAuthenticateFieldOutOfRange(t *testing.T) {
	msg := BuildAuthenticate(&AuthenticateMessage{
		NtChallengeResponse: make([]byte, 48),
		Username:            "User",
		NegotiateFlags:      FlagUnicode,
	})
	// Point the NT response past the end of the message.
	binary.LittleEndian.PutUint32(msg[authNtResponseOffset+4:], uint32(len(msg)))

	_, err := ParseAuthenticate(msg)
	if !errors.Is(err, ErrFieldOutOfRange) {
		t.Errorf("ParseAuthenticate() error = %v, expected %v", err, ErrFieldOutOfRange)
	}
}

func TestParseAuthenticateTooShort(t *testing.T) {
	msg := BuildAuthenticate(&AuthenticateMessage{})[:authVersionOffset-1]
	if _, err := ParseAuthenticate(msg); !errors.Is(err, ErrMessageTooShort) {
		t.Errorf("ParseAuthenticate() error = %v, expected %v", err, ErrMessageTooShort)
	}
}

// =============================================================================
// AV_PAIR Tests
// =============================================================================

func TestTargetInfoRoundTrip(t *testing.T) {
	pairs := []AvPair{
		{ID: AvNbDomainName, Value: encodeUTF16("CORP")},
		{ID: AvTimestamp, Value: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	got, err := ParseTargetInfo(BuildTargetInfo(pairs))
	if err != nil {
		t.Fatalf("ParseTargetInfo() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(pairs) = %d, expected 2", len(got))
	}
	ts, ok := findAvPair(got, AvTimestamp)
	if !ok || !bytes.Equal(ts, pairs[1].Value) {
		t.Errorf("timestamp = %x, %v", ts, ok)
	}
	if _, ok := findAvPair(got, AvDNSComputerName); ok {
		t.Error("unexpected AvDNSComputerName")
	}
}

func TestParseTargetInfoErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"Empty", nil},
		{"NoTerminator", []byte{0x02, 0x00, 0x02, 0x00, 'A', 0}},
		{"LengthPastEnd", []byte{0x02, 0x00, 0x10, 0x00, 'A', 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTargetInfo(tt.input); !errors.Is(err, ErrInvalidAvPair) {
				t.Errorf("ParseTargetInfo() error = %v, expected %v", err, ErrInvalidAvPair)
			}
		})
	}
}

func TestFiletime(t *testing.T) {
	if got := Filetime(FromFiletime(filetimeEpochDelta)); got != filetimeEpochDelta {
		t.Errorf("Filetime(unix epoch) = %d, expected %d", got, uint64(filetimeEpochDelta))
	}
	if got := FromFiletime(filetimeEpochDelta).Unix(); got != 0 {
		t.Errorf("FromFiletime(epoch delta).Unix() = %d, expected 0", got)
	}
}

func TestDecodeStringOddLength(t *testing.T) {
	if got := decodeString([]byte{'A', 0, 'B'}, true); got != "A" {
		t.Errorf("decodeString() = %q, expected %q", got, "A")
	}
}
