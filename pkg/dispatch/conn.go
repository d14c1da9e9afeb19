package dispatch

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/internal/telemetry"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/transport"
)

const (
	roleServer = "server"

	// cleanupTimeout bounds provider cleanup after a connection closes.
	cleanupTimeout = 10 * time.Second
)

// serveConn processes requests from conn in arrival order until the peer
// disconnects, a framing error makes the stream unusable, or shutdown.
func (s *Server) serveConn(conn *transport.Context) {
	lc := logger.NewLogContext(conn.ID(), conn.RemoteAddr(), string(conn.Kind()))
	ctx := withConnectionID(logger.WithContext(s.shutdownCtx, lc), conn.ID())
	ctx, span := telemetry.StartConnectionSpan(ctx, string(conn.Kind()), conn.RemoteAddr(), conn.ID())
	defer span.End()
	defer s.closeConn(ctx, conn)

	logger.DebugCtx(ctx, "Serving connection")

	for {
		select {
		case <-s.shutdown:
			logger.DebugCtx(ctx, "Connection closed due to server shutdown")
			return
		default:
		}

		frame, err := ReceiveMessage(ctx, conn, protocol.DirectionRequest, s.cfg.MaxMessageSize)
		if err != nil {
			s.logReceiveError(ctx, err)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordBytes(roleServer, "in", len(frame))
		}

		if !s.handleFrame(ctx, conn, lc, frame) {
			return
		}
	}
}

func (s *Server) logReceiveError(ctx context.Context, err error) {
	switch {
	case transport.IsClosed(err):
		logger.DebugCtx(ctx, "Connection closed by peer")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.DebugCtx(ctx, "Connection cancelled", logger.Err(err))
	case transport.IsTimeout(err):
		logger.DebugCtx(ctx, "Connection timed out", logger.Err(err))
	case protocol.IsDecodeError(err):
		if s.metrics != nil {
			s.metrics.RecordDecodeError(roleServer, errorKind(err))
		}
		logger.WarnCtx(ctx, "Closing connection on malformed frame",
			logger.ErrorKind(errorKind(err)), logger.Err(err))
	default:
		logger.DebugCtx(ctx, "Error reading request", logger.Err(err))
	}
}

// handleFrame decodes and answers one request. It returns false when the
// connection must be closed.
func (s *Server) handleFrame(ctx context.Context, conn *transport.Context, lc *logger.LogContext, frame []byte) bool {
	h, req, err := protocol.DecodeRequest(frame)
	if carriesIdentity(h.Function) {
		// The decoded request owns copies; the frame still holds the password.
		defer clear(frame)
	}
	if err != nil {
		kind := errorKind(err)
		if s.metrics != nil {
			s.metrics.RecordDecodeError(roleServer, kind)
		}
		logger.WarnCtx(ctx, "Rejected request",
			logger.FunctionID(uint8(h.Function)),
			logger.ErrorKind(kind),
			logger.Err(err))

		if errors.Is(err, protocol.ErrMalformedHeader) {
			return false
		}
		status := protocol.StatusInvalidToken
		if errors.Is(err, protocol.ErrUnsupportedFunction) {
			status = protocol.StatusUnsupportedFunction
		}
		return s.respond(ctx, conn, h, nil, status) == nil
	}

	fn := h.Function.String()
	ctx, span := telemetry.StartCallSpan(ctx, true, fn,
		telemetry.FunctionID(uint8(h.Function)),
		telemetry.RequestBytes(len(frame)))
	defer span.End()
	ctx = logger.WithContext(ctx, lc.WithFunction(fn).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	start := time.Now()
	resp, status := s.invoke(ctx, req)

	telemetry.EndCall(span, uint32(status), status.String(), status.IsError())
	if s.metrics != nil {
		s.metrics.RecordRequest(roleServer, fn, time.Since(start), status.String())
	}
	logger.DebugCtx(ctx, "Request complete",
		logger.Status(uint32(status)),
		logger.DurationMs(logger.Duration(start)))

	if err := s.respond(ctx, conn, h, resp, status); err != nil {
		telemetry.FailCall(span, errorKind(err), err)
		return false
	}
	return true
}

// carriesIdentity reports whether requests for fn may contain an
// AuthIdentity with a password.
func carriesIdentity(fn protocol.FunctionID) bool {
	return fn == protocol.FuncAcquireCredentialsHandle || fn == protocol.FuncAddCredentials
}

// invoke calls the provider, converting a panic into SEC_E_INTERNAL_ERROR.
func (s *Server) invoke(ctx context.Context, req protocol.Message) (resp protocol.Message, status protocol.Status) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic in provider",
				"error", r,
				"stack", string(debug.Stack()))
			resp, status = nil, protocol.StatusInternalError
		}
	}()
	return route(ctx, s.provider, req)
}

// respond frames and sends the response to h. A nil resp with an error
// status is sent header-only.
func (s *Server) respond(ctx context.Context, conn *transport.Context, h protocol.RequestHeader, resp protocol.Message, status protocol.Status) error {
	rh := protocol.ResponseHeader{
		Flags:    h.Flags & protocol.FlagUnicode,
		Function: h.Function,
		Status:   status,
	}
	if resp == nil && !status.IsError() {
		resp, _ = protocol.NewResponse(h.Function)
	}

	frame, err := protocol.EncodeResponse(rh, resp)
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to encode response", logger.Err(err))
		rh.Status = protocol.StatusInternalError
		if frame, err = protocol.EncodeResponse(rh, nil); err != nil {
			return err
		}
	}

	if err := SendMessage(ctx, conn, frame); err != nil {
		logger.DebugCtx(ctx, "Failed to send response", logger.Err(err))
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordBytes(roleServer, "out", len(frame))
	}
	return nil
}

// closeConn handles cleanup and panic recovery for the connection.
func (s *Server) closeConn(ctx context.Context, conn *transport.Context) {
	if r := recover(); r != nil {
		logger.ErrorCtx(ctx, "Panic in connection handler",
			"error", r,
			"stack", string(debug.Stack()))
	}

	_ = conn.Close()

	if cleaner, ok := s.provider.(ConnectionCleaner); ok {
		cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		cleaner.CleanupConnection(cctx, conn.ID())
	}
	logger.DebugCtx(ctx, "Connection released")
}
