package dispatch

import (
	"context"

	"github.com/marmos91/netsspi/pkg/protocol"
)

// Provider is the local security implementation behind a Server. Each method
// receives a decoded request and returns the response plus the outcome
// Status. A nil response is sent as an empty payload, which is how error
// outcomes are normally reported; with a success Status a nil response is
// sent as the zero value.
//
// Providers are only invoked for connections in the server role. Methods may
// be called concurrently for different connections.
type Provider interface {
	EnumerateSecurityPackages(ctx context.Context, req *protocol.EnumerateSecurityPackagesRequest) (*protocol.EnumerateSecurityPackagesResponse, protocol.Status)
	QuerySecurityPackageInfo(ctx context.Context, req *protocol.QuerySecurityPackageInfoRequest) (*protocol.QuerySecurityPackageInfoResponse, protocol.Status)

	QueryCredentialsAttributes(ctx context.Context, req *protocol.QueryCredentialsAttributesRequest) (*protocol.QueryCredentialsAttributesResponse, protocol.Status)
	AcquireCredentialsHandle(ctx context.Context, req *protocol.AcquireCredentialsHandleRequest) (*protocol.AcquireCredentialsHandleResponse, protocol.Status)
	FreeCredentialsHandle(ctx context.Context, req *protocol.FreeCredentialsHandleRequest) (*protocol.FreeCredentialsHandleResponse, protocol.Status)
	AddCredentials(ctx context.Context, req *protocol.AddCredentialsRequest) (*protocol.AddCredentialsResponse, protocol.Status)

	InitializeSecurityContext(ctx context.Context, req *protocol.InitializeSecurityContextRequest) (*protocol.InitializeSecurityContextResponse, protocol.Status)
	AcceptSecurityContext(ctx context.Context, req *protocol.AcceptSecurityContextRequest) (*protocol.AcceptSecurityContextResponse, protocol.Status)
	CompleteAuthToken(ctx context.Context, req *protocol.CompleteAuthTokenRequest) (*protocol.CompleteAuthTokenResponse, protocol.Status)
	DeleteSecurityContext(ctx context.Context, req *protocol.DeleteSecurityContextRequest) (*protocol.DeleteSecurityContextResponse, protocol.Status)
	ApplyControlToken(ctx context.Context, req *protocol.ApplyControlTokenRequest) (*protocol.ApplyControlTokenResponse, protocol.Status)
	QueryContextAttributes(ctx context.Context, req *protocol.QueryContextAttributesRequest) (*protocol.QueryContextAttributesResponse, protocol.Status)
	SetContextAttributes(ctx context.Context, req *protocol.SetContextAttributesRequest) (*protocol.SetContextAttributesResponse, protocol.Status)
	ImpersonateSecurityContext(ctx context.Context, req *protocol.ImpersonateSecurityContextRequest) (*protocol.ImpersonateSecurityContextResponse, protocol.Status)
	RevertSecurityContext(ctx context.Context, req *protocol.RevertSecurityContextRequest) (*protocol.RevertSecurityContextResponse, protocol.Status)
	FreeContextBuffer(ctx context.Context, req *protocol.FreeContextBufferRequest) (*protocol.FreeContextBufferResponse, protocol.Status)
	ExportSecurityContext(ctx context.Context, req *protocol.ExportSecurityContextRequest) (*protocol.ExportSecurityContextResponse, protocol.Status)
	ImportSecurityContext(ctx context.Context, req *protocol.ImportSecurityContextRequest) (*protocol.ImportSecurityContextResponse, protocol.Status)
	QuerySecurityContextToken(ctx context.Context, req *protocol.QuerySecurityContextTokenRequest) (*protocol.QuerySecurityContextTokenResponse, protocol.Status)

	MakeSignature(ctx context.Context, req *protocol.MakeSignatureRequest) (*protocol.MakeSignatureResponse, protocol.Status)
	VerifySignature(ctx context.Context, req *protocol.VerifySignatureRequest) (*protocol.VerifySignatureResponse, protocol.Status)
	EncryptMessage(ctx context.Context, req *protocol.EncryptMessageRequest) (*protocol.EncryptMessageResponse, protocol.Status)
	DecryptMessage(ctx context.Context, req *protocol.DecryptMessageRequest) (*protocol.DecryptMessageResponse, protocol.Status)
}

// ConnectionCleaner is implemented by providers that keep per-connection
// state. CleanupConnection runs after a served connection closes.
type ConnectionCleaner interface {
	CleanupConnection(ctx context.Context, connectionID string)
}

// UnimplementedProvider answers every function with
// SEC_E_UNSUPPORTED_FUNCTION. Embed it to implement a subset.
type UnimplementedProvider struct{}

var _ Provider = UnimplementedProvider{}

func (UnimplementedProvider) EnumerateSecurityPackages(context.Context, *protocol.EnumerateSecurityPackagesRequest) (*protocol.EnumerateSecurityPackagesResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) QuerySecurityPackageInfo(context.Context, *protocol.QuerySecurityPackageInfoRequest) (*protocol.QuerySecurityPackageInfoResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) QueryCredentialsAttributes(context.Context, *protocol.QueryCredentialsAttributesRequest) (*protocol.QueryCredentialsAttributesResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) AcquireCredentialsHandle(context.Context, *protocol.AcquireCredentialsHandleRequest) (*protocol.AcquireCredentialsHandleResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) FreeCredentialsHandle(context.Context, *protocol.FreeCredentialsHandleRequest) (*protocol.FreeCredentialsHandleResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) AddCredentials(context.Context, *protocol.AddCredentialsRequest) (*protocol.AddCredentialsResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) InitializeSecurityContext(context.Context, *protocol.InitializeSecurityContextRequest) (*protocol.InitializeSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) AcceptSecurityContext(context.Context, *protocol.AcceptSecurityContextRequest) (*protocol.AcceptSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) CompleteAuthToken(context.Context, *protocol.CompleteAuthTokenRequest) (*protocol.CompleteAuthTokenResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) DeleteSecurityContext(context.Context, *protocol.DeleteSecurityContextRequest) (*protocol.DeleteSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) ApplyControlToken(context.Context, *protocol.ApplyControlTokenRequest) (*protocol.ApplyControlTokenResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) QueryContextAttributes(context.Context, *protocol.QueryContextAttributesRequest) (*protocol.QueryContextAttributesResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) SetContextAttributes(context.Context, *protocol.SetContextAttributesRequest) (*protocol.SetContextAttributesResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) ImpersonateSecurityContext(context.Context, *protocol.ImpersonateSecurityContextRequest) (*protocol.ImpersonateSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) RevertSecurityContext(context.Context, *protocol.RevertSecurityContextRequest) (*protocol.RevertSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) FreeContextBuffer(context.Context, *protocol.FreeContextBufferRequest) (*protocol.FreeContextBufferResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) ExportSecurityContext(context.Context, *protocol.ExportSecurityContextRequest) (*protocol.ExportSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) ImportSecurityContext(context.Context, *protocol.ImportSecurityContextRequest) (*protocol.ImportSecurityContextResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) QuerySecurityContextToken(context.Context, *protocol.QuerySecurityContextTokenRequest) (*protocol.QuerySecurityContextTokenResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) MakeSignature(context.Context, *protocol.MakeSignatureRequest) (*protocol.MakeSignatureResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) VerifySignature(context.Context, *protocol.VerifySignatureRequest) (*protocol.VerifySignatureResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) EncryptMessage(context.Context, *protocol.EncryptMessageRequest) (*protocol.EncryptMessageResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

func (UnimplementedProvider) DecryptMessage(context.Context, *protocol.DecryptMessageRequest) (*protocol.DecryptMessageResponse, protocol.Status) {
	return nil, protocol.StatusUnsupportedFunction
}

type connectionKey struct{}

// withConnectionID records the serving connection on ctx.
func withConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionKey{}, id)
}

// ConnectionID returns the identifier of the connection a provider call
// arrived on, or "" outside a served connection.
func ConnectionID(ctx context.Context) string {
	id, _ := ctx.Value(connectionKey{}).(string)
	return id
}
