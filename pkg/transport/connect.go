package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marmos91/netsspi/internal/logger"
)

const (
	defaultRetryInitial = 100 * time.Millisecond
	defaultRetryMax     = 2 * time.Second
)

// Connect opens a client Context, retrying with exponential backoff while
// the peer is not yet listening. It is meant for IPC, where the server may
// start after the client, but works for any client backend.
func (c *Context) Connect(ctx context.Context) error {
	if c.role != RoleClient {
		return fmt.Errorf("%w: connect on %s context", ErrInvalidState, c.role)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.Retry.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultRetryInitial
	}
	b.MaxInterval = c.opts.Retry.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = defaultRetryMax
	}
	b.MaxElapsedTime = c.opts.Retry.MaxElapsed

	op := func() error {
		err := c.Open(ctx)
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrConnectionClosed) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Debug("Transport connect failed, retrying",
			logger.KeyTransport, string(c.kind),
			logger.KeyTarget, c.target,
			logger.KeyError, err,
			"retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("connect %s %s: %w", c.kind, c.target, err)
	}
	return nil
}
