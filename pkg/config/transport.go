package config

import (
	"context"
	"fmt"

	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/provider/ntlm"
	"github.com/marmos91/netsspi/pkg/transport"
)

// TransportKind returns the configured backend.
func (t *TransportConfig) TransportKind() (transport.Kind, error) {
	return transport.ParseKind(t.Kind)
}

// Options converts the section into per-Context transport options.
func (t *TransportConfig) Options() transport.Options {
	return transport.Options{
		ReadTimeout:  t.ReadTimeout,
		WriteTimeout: t.WriteTimeout,
		Retry: transport.RetryPolicy{
			InitialInterval: t.ConnectRetry.InitialInterval,
			MaxInterval:     t.ConnectRetry.MaxInterval,
			MaxElapsed:      t.ConnectRetry.MaxElapsed,
		},
		BaudRate: t.Serial.BaudRate,
	}
}

// Dial opens a client Context to the configured address and wraps it in a
// dispatch Client. m may be nil.
func (c *Config) Dial(ctx context.Context, m metrics.DispatchMetrics) (*dispatch.Client, *transport.Context, error) {
	kind, err := c.Transport.TransportKind()
	if err != nil {
		return nil, nil, err
	}
	conn, err := transport.New(kind, transport.RoleClient, c.Transport.Address, c.Transport.Options())
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect %s %s: %w", kind, c.Transport.Address, err)
	}

	client := dispatch.NewClient(conn, dispatch.ClientConfig{
		Unicode:        c.Transport.Unicode,
		MaxMessageSize: c.Transport.MaxMessageSize.Int(),
		Metrics:        m,
	})
	return client, conn, nil
}

// NewServer builds the dispatch server and the reference provider it
// serves. m may be nil. The provider reports to metrics.NewProviderMetrics
// when the registry is initialized.
func (c *Config) NewServer(m metrics.DispatchMetrics) (*dispatch.Server, *ntlm.Provider, error) {
	providerCfg, err := c.Provider.NTLMConfig()
	if err != nil {
		return nil, nil, err
	}
	providerCfg.Metrics = metrics.NewProviderMetrics()
	p := ntlm.New(providerCfg)

	srv := dispatch.NewServer(dispatch.ServerConfig{
		MaxConnections:     c.Server.MaxConnections,
		MaxMessageSize:     c.Transport.MaxMessageSize.Int(),
		ShutdownTimeout:    c.ShutdownTimeout,
		MetricsLogInterval: c.Server.MetricsLogInterval,
	}, p, m)
	return srv, p, nil
}
