package protocol

import (
	"fmt"

	"github.com/marmos91/netsspi/pkg/wire"
)

// Message is one request or response payload. Encode and Decode use the
// accumulating wire codec; callers check the Writer or Reader error once at
// the end.
type Message interface {
	FunctionID() FunctionID
	Encode(w *wire.Writer)
	Decode(r *wire.Reader)
}

type commandShape struct {
	request  func() Message
	response func() Message
}

var commands = map[FunctionID]commandShape{
	FuncEnumerateSecurityPackages: {
		func() Message { return &EnumerateSecurityPackagesRequest{} },
		func() Message { return &EnumerateSecurityPackagesResponse{} },
	},
	FuncQueryCredentialsAttributes: {
		func() Message { return &QueryCredentialsAttributesRequest{} },
		func() Message { return &QueryCredentialsAttributesResponse{} },
	},
	FuncAcquireCredentialsHandle: {
		func() Message { return &AcquireCredentialsHandleRequest{} },
		func() Message { return &AcquireCredentialsHandleResponse{} },
	},
	FuncFreeCredentialsHandle: {
		func() Message { return &FreeCredentialsHandleRequest{} },
		func() Message { return &FreeCredentialsHandleResponse{} },
	},
	FuncInitializeSecurityContext: {
		func() Message { return &InitializeSecurityContextRequest{} },
		func() Message { return &InitializeSecurityContextResponse{} },
	},
	FuncAcceptSecurityContext: {
		func() Message { return &AcceptSecurityContextRequest{} },
		func() Message { return &AcceptSecurityContextResponse{} },
	},
	FuncCompleteAuthToken: {
		func() Message { return &CompleteAuthTokenRequest{} },
		func() Message { return &CompleteAuthTokenResponse{} },
	},
	FuncDeleteSecurityContext: {
		func() Message { return &DeleteSecurityContextRequest{} },
		func() Message { return &DeleteSecurityContextResponse{} },
	},
	FuncApplyControlToken: {
		func() Message { return &ApplyControlTokenRequest{} },
		func() Message { return &ApplyControlTokenResponse{} },
	},
	FuncQueryContextAttributes: {
		func() Message { return &QueryContextAttributesRequest{} },
		func() Message { return &QueryContextAttributesResponse{} },
	},
	FuncImpersonateSecurityContext: {
		func() Message { return &ImpersonateSecurityContextRequest{} },
		func() Message { return &ImpersonateSecurityContextResponse{} },
	},
	FuncRevertSecurityContext: {
		func() Message { return &RevertSecurityContextRequest{} },
		func() Message { return &RevertSecurityContextResponse{} },
	},
	FuncMakeSignature: {
		func() Message { return &MakeSignatureRequest{} },
		func() Message { return &MakeSignatureResponse{} },
	},
	FuncVerifySignature: {
		func() Message { return &VerifySignatureRequest{} },
		func() Message { return &VerifySignatureResponse{} },
	},
	FuncFreeContextBuffer: {
		func() Message { return &FreeContextBufferRequest{} },
		func() Message { return &FreeContextBufferResponse{} },
	},
	FuncQuerySecurityPackageInfo: {
		func() Message { return &QuerySecurityPackageInfoRequest{} },
		func() Message { return &QuerySecurityPackageInfoResponse{} },
	},
	FuncExportSecurityContext: {
		func() Message { return &ExportSecurityContextRequest{} },
		func() Message { return &ExportSecurityContextResponse{} },
	},
	FuncImportSecurityContext: {
		func() Message { return &ImportSecurityContextRequest{} },
		func() Message { return &ImportSecurityContextResponse{} },
	},
	FuncAddCredentials: {
		func() Message { return &AddCredentialsRequest{} },
		func() Message { return &AddCredentialsResponse{} },
	},
	FuncQuerySecurityContextToken: {
		func() Message { return &QuerySecurityContextTokenRequest{} },
		func() Message { return &QuerySecurityContextTokenResponse{} },
	},
	FuncEncryptMessage: {
		func() Message { return &EncryptMessageRequest{} },
		func() Message { return &EncryptMessageResponse{} },
	},
	FuncDecryptMessage: {
		func() Message { return &DecryptMessageRequest{} },
		func() Message { return &DecryptMessageResponse{} },
	},
	FuncSetContextAttributes: {
		func() Message { return &SetContextAttributesRequest{} },
		func() Message { return &SetContextAttributesResponse{} },
	},
}

// NewRequest returns a zero request for fn, or ErrUnsupportedFunction.
func NewRequest(fn FunctionID) (Message, error) {
	shape, ok := commands[fn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFunction, fn)
	}
	return shape.request(), nil
}

// NewResponse returns a zero response for fn, or ErrUnsupportedFunction.
func NewResponse(fn FunctionID) (Message, error) {
	shape, ok := commands[fn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFunction, fn)
	}
	return shape.response(), nil
}
