package dispatch

import (
	"context"

	"github.com/marmos91/netsspi/pkg/protocol"
)

// route invokes the provider method matching req.
func route(ctx context.Context, p Provider, req protocol.Message) (protocol.Message, protocol.Status) {
	switch r := req.(type) {
	case *protocol.EnumerateSecurityPackagesRequest:
		resp, status := p.EnumerateSecurityPackages(ctx, r)
		return reply(resp, status)
	case *protocol.QuerySecurityPackageInfoRequest:
		resp, status := p.QuerySecurityPackageInfo(ctx, r)
		return reply(resp, status)
	case *protocol.QueryCredentialsAttributesRequest:
		resp, status := p.QueryCredentialsAttributes(ctx, r)
		return reply(resp, status)
	case *protocol.AcquireCredentialsHandleRequest:
		resp, status := p.AcquireCredentialsHandle(ctx, r)
		return reply(resp, status)
	case *protocol.FreeCredentialsHandleRequest:
		resp, status := p.FreeCredentialsHandle(ctx, r)
		return reply(resp, status)
	case *protocol.AddCredentialsRequest:
		resp, status := p.AddCredentials(ctx, r)
		return reply(resp, status)
	case *protocol.InitializeSecurityContextRequest:
		resp, status := p.InitializeSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.AcceptSecurityContextRequest:
		resp, status := p.AcceptSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.CompleteAuthTokenRequest:
		resp, status := p.CompleteAuthToken(ctx, r)
		return reply(resp, status)
	case *protocol.DeleteSecurityContextRequest:
		resp, status := p.DeleteSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.ApplyControlTokenRequest:
		resp, status := p.ApplyControlToken(ctx, r)
		return reply(resp, status)
	case *protocol.QueryContextAttributesRequest:
		resp, status := p.QueryContextAttributes(ctx, r)
		return reply(resp, status)
	case *protocol.SetContextAttributesRequest:
		resp, status := p.SetContextAttributes(ctx, r)
		return reply(resp, status)
	case *protocol.ImpersonateSecurityContextRequest:
		resp, status := p.ImpersonateSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.RevertSecurityContextRequest:
		resp, status := p.RevertSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.FreeContextBufferRequest:
		resp, status := p.FreeContextBuffer(ctx, r)
		return reply(resp, status)
	case *protocol.ExportSecurityContextRequest:
		resp, status := p.ExportSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.ImportSecurityContextRequest:
		resp, status := p.ImportSecurityContext(ctx, r)
		return reply(resp, status)
	case *protocol.QuerySecurityContextTokenRequest:
		resp, status := p.QuerySecurityContextToken(ctx, r)
		return reply(resp, status)
	case *protocol.MakeSignatureRequest:
		resp, status := p.MakeSignature(ctx, r)
		return reply(resp, status)
	case *protocol.VerifySignatureRequest:
		resp, status := p.VerifySignature(ctx, r)
		return reply(resp, status)
	case *protocol.EncryptMessageRequest:
		resp, status := p.EncryptMessage(ctx, r)
		return reply(resp, status)
	case *protocol.DecryptMessageRequest:
		resp, status := p.DecryptMessage(ctx, r)
		return reply(resp, status)
	default:
		return nil, protocol.StatusUnsupportedFunction
	}
}

// reply erases the response type while keeping a nil pointer nil.
func reply[R any, P interface {
	*R
	protocol.Message
}](resp P, status protocol.Status) (protocol.Message, protocol.Status) {
	if resp == nil {
		return nil, status
	}
	return resp, status
}
