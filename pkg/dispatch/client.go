package dispatch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/internal/telemetry"
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/transport"
)

const roleClient = "client"

// ClientConfig tunes a Client.
type ClientConfig struct {
	// Unicode sets FlagUnicode on every request header.
	Unicode bool

	// MaxMessageSize caps the TotalLength of responses. 0 means no cap.
	MaxMessageSize int

	// Metrics is optional. Nil disables collection.
	Metrics metrics.DispatchMetrics
}

// Client invokes remote functions over one connection. Calls are
// serialized: the wire format has no correlation identifier, so the n-th
// response always answers the n-th request.
//
// A send or receive failure can leave part of a frame on the stream, so the
// Client closes the connection and fails every later call with broken.
type Client struct {
	conn   Conn
	cfg    ClientConfig
	mu     sync.Mutex
	broken error
}

// NewClient returns a Client over an open connection.
func NewClient(conn Conn, cfg ClientConfig) *Client {
	return &Client{conn: conn, cfg: cfg}
}

// Err returns the error that made the Client unusable, or nil.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

// abandon marks the stream unusable after cause and closes the connection
// when it can be closed.
func (c *Client) abandon(cause error) {
	c.broken = fmt.Errorf("dispatch: client unusable after failed exchange: %w (%v)", transport.ErrConnectionClosed, cause)
	if closer, ok := c.conn.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Call sends req and decodes the response. Framing and validation failures
// come back as errors wrapping *protocol.DecodeError. The operation outcome
// is the returned Status and is never turned into an error.
func (c *Client) Call(ctx context.Context, req protocol.Message) (protocol.Message, protocol.Status, error) {
	fn := req.FunctionID()

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := telemetry.StartCallSpan(ctx, false, fn.String(), telemetry.FunctionID(uint8(fn)))
	defer span.End()

	start := time.Now()
	resp, status, err := c.roundTrip(ctx, req)
	if err != nil {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordDecodeError(roleClient, errorKind(err))
		}
		telemetry.FailCall(span, errorKind(err), err)
		logger.DebugCtx(ctx, "Call failed",
			logger.Function(fn.String()),
			logger.ErrorKind(errorKind(err)),
			logger.Err(err))
		return nil, status, err
	}

	telemetry.EndCall(span, uint32(status), status.String(), status.IsError())
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordRequest(roleClient, fn.String(), time.Since(start), status.String())
	}
	logger.DebugCtx(ctx, "Call complete",
		logger.Function(fn.String()),
		logger.Status(uint32(status)),
		logger.DurationMs(logger.Duration(start)))
	return resp, status, nil
}

func (c *Client) roundTrip(ctx context.Context, req protocol.Message) (protocol.Message, protocol.Status, error) {
	fn := req.FunctionID()
	if c.broken != nil {
		return nil, 0, c.broken
	}
	// Nothing has touched the stream yet.
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var h protocol.RequestHeader
	if c.cfg.Unicode {
		h.Flags |= protocol.FlagUnicode
	}
	frame, err := protocol.EncodeRequest(h, req)
	if err != nil {
		return nil, 0, err
	}
	if err := SendMessage(ctx, c.conn, frame); err != nil {
		c.abandon(err)
		return nil, 0, err
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordBytes(roleClient, "out", len(frame))
	}

	reply, err := ReceiveMessage(ctx, c.conn, protocol.DirectionResponse, c.cfg.MaxMessageSize)
	if err != nil {
		c.abandon(err)
		return nil, 0, err
	}
	// From here the whole frame has been consumed and the stream stays usable.
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordBytes(roleClient, "in", len(reply))
	}

	rh, resp, err := protocol.DecodeResponse(reply)
	if err != nil {
		return nil, rh.Status, err
	}
	if rh.Function != fn {
		return nil, rh.Status, &protocol.DecodeError{
			Function: fn,
			Err:      fmt.Errorf("%w: sent %s, received %s", ErrResponseMismatch, fn, rh.Function),
		}
	}
	return resp, rh.Status, nil
}

// call is the typed wrapper behind every Client method. DecodeResponse builds
// the response from the header's function, which roundTrip has matched to
// the request, so the assertion holds.
func call[R any, P interface {
	*R
	protocol.Message
}](ctx context.Context, c *Client, req protocol.Message) (P, protocol.Status, error) {
	resp, status, err := c.Call(ctx, req)
	if err != nil {
		return nil, status, err
	}
	return resp.(P), status, nil
}

func (c *Client) EnumerateSecurityPackages(ctx context.Context) (*protocol.EnumerateSecurityPackagesResponse, protocol.Status, error) {
	return call[protocol.EnumerateSecurityPackagesResponse](ctx, c, &protocol.EnumerateSecurityPackagesRequest{})
}

func (c *Client) QuerySecurityPackageInfo(ctx context.Context, req *protocol.QuerySecurityPackageInfoRequest) (*protocol.QuerySecurityPackageInfoResponse, protocol.Status, error) {
	return call[protocol.QuerySecurityPackageInfoResponse](ctx, c, req)
}

func (c *Client) QueryCredentialsAttributes(ctx context.Context, req *protocol.QueryCredentialsAttributesRequest) (*protocol.QueryCredentialsAttributesResponse, protocol.Status, error) {
	return call[protocol.QueryCredentialsAttributesResponse](ctx, c, req)
}

func (c *Client) AcquireCredentialsHandle(ctx context.Context, req *protocol.AcquireCredentialsHandleRequest) (*protocol.AcquireCredentialsHandleResponse, protocol.Status, error) {
	return call[protocol.AcquireCredentialsHandleResponse](ctx, c, req)
}

func (c *Client) FreeCredentialsHandle(ctx context.Context, req *protocol.FreeCredentialsHandleRequest) (*protocol.FreeCredentialsHandleResponse, protocol.Status, error) {
	return call[protocol.FreeCredentialsHandleResponse](ctx, c, req)
}

func (c *Client) AddCredentials(ctx context.Context, req *protocol.AddCredentialsRequest) (*protocol.AddCredentialsResponse, protocol.Status, error) {
	return call[protocol.AddCredentialsResponse](ctx, c, req)
}

func (c *Client) InitializeSecurityContext(ctx context.Context, req *protocol.InitializeSecurityContextRequest) (*protocol.InitializeSecurityContextResponse, protocol.Status, error) {
	return call[protocol.InitializeSecurityContextResponse](ctx, c, req)
}

func (c *Client) AcceptSecurityContext(ctx context.Context, req *protocol.AcceptSecurityContextRequest) (*protocol.AcceptSecurityContextResponse, protocol.Status, error) {
	return call[protocol.AcceptSecurityContextResponse](ctx, c, req)
}

func (c *Client) CompleteAuthToken(ctx context.Context, req *protocol.CompleteAuthTokenRequest) (*protocol.CompleteAuthTokenResponse, protocol.Status, error) {
	return call[protocol.CompleteAuthTokenResponse](ctx, c, req)
}

func (c *Client) DeleteSecurityContext(ctx context.Context, req *protocol.DeleteSecurityContextRequest) (*protocol.DeleteSecurityContextResponse, protocol.Status, error) {
	return call[protocol.DeleteSecurityContextResponse](ctx, c, req)
}

func (c *Client) ApplyControlToken(ctx context.Context, req *protocol.ApplyControlTokenRequest) (*protocol.ApplyControlTokenResponse, protocol.Status, error) {
	return call[protocol.ApplyControlTokenResponse](ctx, c, req)
}

func (c *Client) QueryContextAttributes(ctx context.Context, req *protocol.QueryContextAttributesRequest) (*protocol.QueryContextAttributesResponse, protocol.Status, error) {
	return call[protocol.QueryContextAttributesResponse](ctx, c, req)
}

func (c *Client) SetContextAttributes(ctx context.Context, req *protocol.SetContextAttributesRequest) (*protocol.SetContextAttributesResponse, protocol.Status, error) {
	return call[protocol.SetContextAttributesResponse](ctx, c, req)
}

func (c *Client) ImpersonateSecurityContext(ctx context.Context, req *protocol.ImpersonateSecurityContextRequest) (*protocol.ImpersonateSecurityContextResponse, protocol.Status, error) {
	return call[protocol.ImpersonateSecurityContextResponse](ctx, c, req)
}

func (c *Client) RevertSecurityContext(ctx context.Context, req *protocol.RevertSecurityContextRequest) (*protocol.RevertSecurityContextResponse, protocol.Status, error) {
	return call[protocol.RevertSecurityContextResponse](ctx, c, req)
}

func (c *Client) FreeContextBuffer(ctx context.Context, req *protocol.FreeContextBufferRequest) (*protocol.FreeContextBufferResponse, protocol.Status, error) {
	return call[protocol.FreeContextBufferResponse](ctx, c, req)
}

func (c *Client) ExportSecurityContext(ctx context.Context, req *protocol.ExportSecurityContextRequest) (*protocol.ExportSecurityContextResponse, protocol.Status, error) {
	return call[protocol.ExportSecurityContextResponse](ctx, c, req)
}

func (c *Client) ImportSecurityContext(ctx context.Context, req *protocol.ImportSecurityContextRequest) (*protocol.ImportSecurityContextResponse, protocol.Status, error) {
	return call[protocol.ImportSecurityContextResponse](ctx, c, req)
}

func (c *Client) QuerySecurityContextToken(ctx context.Context, req *protocol.QuerySecurityContextTokenRequest) (*protocol.QuerySecurityContextTokenResponse, protocol.Status, error) {
	return call[protocol.QuerySecurityContextTokenResponse](ctx, c, req)
}

func (c *Client) MakeSignature(ctx context.Context, req *protocol.MakeSignatureRequest) (*protocol.MakeSignatureResponse, protocol.Status, error) {
	return call[protocol.MakeSignatureResponse](ctx, c, req)
}

func (c *Client) VerifySignature(ctx context.Context, req *protocol.VerifySignatureRequest) (*protocol.VerifySignatureResponse, protocol.Status, error) {
	return call[protocol.VerifySignatureResponse](ctx, c, req)
}

func (c *Client) EncryptMessage(ctx context.Context, req *protocol.EncryptMessageRequest) (*protocol.EncryptMessageResponse, protocol.Status, error) {
	return call[protocol.EncryptMessageResponse](ctx, c, req)
}

func (c *Client) DecryptMessage(ctx context.Context, req *protocol.DecryptMessageRequest) (*protocol.DecryptMessageResponse, protocol.Status, error) {
	return call[protocol.DecryptMessageResponse](ctx, c, req)
}
