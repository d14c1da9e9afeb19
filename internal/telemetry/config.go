package telemetry

import "fmt"

// Config configures trace export.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector address, host:port.
	Endpoint string

	// Insecure disables TLS to the collector.
	Insecure bool

	// SampleRate is the fraction of root calls traced, 0.0 to 1.0. Calls
	// that arrive with a sampled parent are always traced.
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector address.
func DefaultConfig() Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("telemetry: endpoint is required")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry: sample rate %v outside [0, 1]", c.SampleRate)
	}
	if c.ServiceName == "" {
		c.ServiceName = serviceName
	}
	return nil
}
