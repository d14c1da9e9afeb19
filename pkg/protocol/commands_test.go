package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/netsspi/pkg/wire"
)

func sampleDesc() wire.SecBufferDesc {
	return wire.NewSecBufferDesc(
		wire.SecBuffer{Type: wire.SecBufferToken, Data: []byte{}},
		wire.SecBuffer{Type: wire.SecBufferData, Data: []byte("payload")},
	)
}

func sampleIdentity() *wire.AuthIdentity {
	return &wire.AuthIdentity{
		Flags:    wire.AuthIdentityUnicode,
		User:     wire.NewWideString("alice"),
		Domain:   wire.String{Encoding: wire.EncodingWide, Buffer: []byte{}},
		Password: wire.NewWideString("pw"),
	}
}

// commandSamples holds a non-trivial request and response for every
// supported function.
func commandSamples() map[FunctionID][2]Message {
	h1 := wire.Handle{Lower: 1, Upper: 2}
	h2 := wire.Handle{Lower: 0xFFFFFFFFFFFFFFFF, Upper: 3}
	ts := wire.Timestamp{LowPart: 0xDEADBEEF, HighPart: -1}
	empty := wire.String{Buffer: []byte{}}

	return map[FunctionID][2]Message{
		FuncEnumerateSecurityPackages: {
			&EnumerateSecurityPackagesRequest{},
			&EnumerateSecurityPackagesResponse{Packages: []PackageInfo{
				{Capabilities: 0x82B37, Version: 1, RPCID: 10, MaxToken: 2888, Name: wire.NewString("NTLM"), Comment: empty},
				{Capabilities: 1, Version: 1, RPCID: 9, MaxToken: 4096, Name: wire.NewWideString("Negotiate"), Comment: wire.NewString("SPNEGO")},
			}},
		},
		FuncQueryCredentialsAttributes: {
			&QueryCredentialsAttributesRequest{Credential: h1, Attribute: AttrNames},
			&QueryCredentialsAttributesResponse{Buffer: []byte("alice")},
		},
		FuncAcquireCredentialsHandle: {
			&AcquireCredentialsHandleRequest{
				Principal: empty, Package: wire.NewString("NTLM"), CredentialUse: CredentialUseOutbound,
				LogonID: wire.LUID{LowPart: 5, HighPart: -5}, Identity: sampleIdentity(),
			},
			&AcquireCredentialsHandleResponse{Credential: h1, Expiry: ts},
		},
		FuncFreeCredentialsHandle: {
			&FreeCredentialsHandleRequest{Credential: h2},
			&FreeCredentialsHandleResponse{},
		},
		FuncInitializeSecurityContext: {
			&InitializeSecurityContextRequest{
				Credential: h1, Context: h2, TargetName: wire.NewString("host/server"),
				ContextReq: ContextReqConfidentiality | ContextReqIntegrity, TargetDataRep: DataRepNative,
				Input: wire.NewSecBufferDesc(),
			},
			&InitializeSecurityContextResponse{NewContext: h2, Output: sampleDesc(), ContextAttr: 0x10, Expiry: ts},
		},
		FuncAcceptSecurityContext: {
			&AcceptSecurityContextRequest{Credential: h1, Context: wire.Handle{}, Input: sampleDesc(), ContextReq: 2, TargetDataRep: DataRepNetwork},
			&AcceptSecurityContextResponse{NewContext: h2, Output: sampleDesc(), ContextAttr: 0x20, Expiry: ts},
		},
		FuncCompleteAuthToken: {
			&CompleteAuthTokenRequest{Context: h2, Token: sampleDesc()},
			&CompleteAuthTokenResponse{},
		},
		FuncDeleteSecurityContext: {
			&DeleteSecurityContextRequest{Context: h2},
			&DeleteSecurityContextResponse{},
		},
		FuncApplyControlToken: {
			&ApplyControlTokenRequest{Context: h2, Input: sampleDesc()},
			&ApplyControlTokenResponse{},
		},
		FuncQueryContextAttributes: {
			&QueryContextAttributesRequest{Context: h2, Attribute: AttrSizes},
			&QueryContextAttributesResponse{Buffer: []byte{}},
		},
		FuncImpersonateSecurityContext: {
			&ImpersonateSecurityContextRequest{Context: h2},
			&ImpersonateSecurityContextResponse{},
		},
		FuncRevertSecurityContext: {
			&RevertSecurityContextRequest{Context: h2},
			&RevertSecurityContextResponse{},
		},
		FuncMakeSignature: {
			&MakeSignatureRequest{Context: h2, QOP: 0, Message: sampleDesc(), SeqNo: 3},
			&MakeSignatureResponse{Message: sampleDesc()},
		},
		FuncVerifySignature: {
			&VerifySignatureRequest{Context: h2, Message: sampleDesc(), SeqNo: 3},
			&VerifySignatureResponse{QOP: 1},
		},
		FuncFreeContextBuffer: {
			&FreeContextBufferRequest{Buffer: h1},
			&FreeContextBufferResponse{},
		},
		FuncQuerySecurityPackageInfo: {
			&QuerySecurityPackageInfoRequest{PackageName: wire.NewWideString("NTLM")},
			&QuerySecurityPackageInfoResponse{PackageInfo{Capabilities: 7, Version: 1, RPCID: 10, MaxToken: 2888, Name: wire.NewString("NTLM"), Comment: empty}},
		},
		FuncExportSecurityContext: {
			&ExportSecurityContextRequest{Context: h2, Flags: 1},
			&ExportSecurityContextResponse{PackedContext: wire.SecBuffer{Type: wire.SecBufferEmpty, Data: []byte{9, 9}}, Token: h1},
		},
		FuncImportSecurityContext: {
			&ImportSecurityContextRequest{Package: wire.NewString("NTLM"), PackedContext: wire.SecBuffer{Type: 0, Data: []byte{}}, Token: h1},
			&ImportSecurityContextResponse{Context: h2},
		},
		FuncAddCredentials: {
			&AddCredentialsRequest{Credential: h1, Principal: empty, Package: wire.NewString("Negotiate"), CredentialUse: CredentialUseBoth},
			&AddCredentialsResponse{Expiry: ts},
		},
		FuncQuerySecurityContextToken: {
			&QuerySecurityContextTokenRequest{Context: h2},
			&QuerySecurityContextTokenResponse{Token: h1},
		},
		FuncEncryptMessage: {
			&EncryptMessageRequest{Context: h2, QOP: 0, Message: sampleDesc(), SeqNo: 7},
			&EncryptMessageResponse{Message: sampleDesc()},
		},
		FuncDecryptMessage: {
			&DecryptMessageRequest{Context: h2, Message: sampleDesc(), SeqNo: 7},
			&DecryptMessageResponse{Message: sampleDesc(), QOP: QOPWrapNoEncrypt},
		},
		FuncSetContextAttributes: {
			&SetContextAttributesRequest{Context: h2, Attribute: AttrFlags, Buffer: []byte{1, 0, 0, 0}},
			&SetContextAttributesResponse{},
		},
	}
}

func TestCommands_CoverEverySupportedFunction(t *testing.T) {
	samples := commandSamples()
	for _, fn := range SupportedFunctions() {
		pair, ok := samples[fn]
		require.True(t, ok, "no sample for %s", fn)
		assert.Equal(t, fn, pair[0].FunctionID())
		assert.Equal(t, fn, pair[1].FunctionID())
	}
	assert.Len(t, samples, 23)
}

func TestCommands_RequestRoundTrip(t *testing.T) {
	for fn, pair := range commandSamples() {
		t.Run(fn.String(), func(t *testing.T) {
			frame, err := EncodeRequest(RequestHeader{Flags: FlagUnicode, ExtFlags: ExtField(1)}, pair[0])
			require.NoError(t, err)

			h, msg, err := DecodeRequest(frame)
			require.NoError(t, err)
			assert.Equal(t, fn, h.Function)
			assert.True(t, h.Unicode())
			assert.Equal(t, ExtField(1), h.ExtFlags)
			assert.Equal(t, pair[0], msg)
		})
	}
}

func TestCommands_ResponseRoundTrip(t *testing.T) {
	for fn, pair := range commandSamples() {
		t.Run(fn.String(), func(t *testing.T) {
			frame, err := EncodeResponse(ResponseHeader{Status: StatusContinueNeeded}, pair[1])
			require.NoError(t, err)

			h, msg, err := DecodeResponse(frame)
			require.NoError(t, err)
			assert.Equal(t, fn, h.Function)
			assert.Equal(t, StatusContinueNeeded, h.Status)
			assert.Equal(t, pair[1], msg)
		})
	}
}

func TestCommands_ZeroValuesRoundTrip(t *testing.T) {
	for _, fn := range SupportedFunctions() {
		req, err := NewRequest(fn)
		require.NoError(t, err)
		frame, err := EncodeRequest(RequestHeader{}, req)
		require.NoError(t, err, fn)
		_, _, err = DecodeRequest(frame)
		require.NoError(t, err, fn)

		rsp, err := NewResponse(fn)
		require.NoError(t, err)
		frame, err = EncodeResponse(ResponseHeader{}, rsp)
		require.NoError(t, err, fn)
		_, _, err = DecodeResponse(frame)
		require.NoError(t, err, fn)
	}
}

func TestAcquireCredentialsHandle_IdentityAbsent(t *testing.T) {
	req := &AcquireCredentialsHandleRequest{
		Principal:     wire.String{Buffer: []byte{}},
		Package:       wire.NewString("NTLM"),
		CredentialUse: CredentialUseOutbound,
	}
	frame, err := EncodeRequest(RequestHeader{}, req)
	require.NoError(t, err)

	// Principal(2) + Package(2+4) + use(4) + LUID(8) + AuthDataLength(4)
	assert.Len(t, frame, RequestHeaderSize+2+6+4+8+4)

	_, msg, err := DecodeRequest(frame)
	require.NoError(t, err)
	got := msg.(*AcquireCredentialsHandleRequest)
	assert.Nil(t, got.Identity)
	assert.Equal(t, "NTLM", got.Package.Text())
	assert.Empty(t, got.Principal.Buffer)
	assert.Equal(t, uint32(2), got.CredentialUse)
}

func TestAcquireCredentialsHandle_IdentityLengthMismatch(t *testing.T) {
	req := &AcquireCredentialsHandleRequest{
		Principal: wire.String{Buffer: []byte{}},
		Package:   wire.NewString("NTLM"),
		Identity:  sampleIdentity(),
	}
	frame, err := EncodeRequest(RequestHeader{}, req)
	require.NoError(t, err)

	// Grow AuthDataLength by one and append a byte so the frame stays
	// consistent but the identity does not fill its declared size.
	idOffset := RequestHeaderSize + 2 + 6 + 4 + 8
	frame[idOffset]++
	frame = append(frame, 0)
	frame[0]++

	_, _, err = DecodeRequest(frame)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTrailingData)
	assert.True(t, IsDecodeError(err))
}

func TestEnumerateSecurityPackages_CountExceedsInput(t *testing.T) {
	w := wire.NewWriter(0)
	ResponseHeader{Function: FuncEnumerateSecurityPackages}.Encode(w)
	w.WriteUint32(1 << 30)
	w.PutUint32At(0, uint32(w.Len()))

	_, _, err := DecodeResponse(w.Bytes())
	assert.ErrorIs(t, err, wire.ErrLengthExceedsInput)
}
