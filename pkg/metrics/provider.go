package metrics

// ProviderMetrics provides observability for the reference security
// provider: logon outcomes, live handles and protected message traffic.
// Pass nil to disable collection.
//
// Example usage:
//
//	metrics.InitRegistry()
//	p := ntlm.New(ntlm.Config{Metrics: metrics.NewProviderMetrics()})
type ProviderMetrics interface {
	// RecordLogon records the outcome of an AUTHENTICATE validation.
	//
	// Parameters:
	//   - pkg: package name ("NTLM" or "Negotiate")
	//   - result: "success", "anonymous" or "denied"
	RecordLogon(pkg string, result string)

	// SetHandles updates the number of live handles of one kind.
	//
	// Parameters:
	//   - kind: "credential" or "context"
	//   - count: entries currently in the table
	SetHandles(kind string, count int)

	// RecordMessage records one signing or sealing operation.
	//
	// Parameters:
	//   - op: "sign", "verify", "seal" or "unseal"
	//   - bytes: protected payload size
	RecordMessage(op string, bytes int)
}

// NewProviderMetrics returns the Prometheus ProviderMetrics, or nil when
// metrics are disabled or pkg/metrics/prometheus is not linked in.
func NewProviderMetrics() ProviderMetrics {
	if !IsEnabled() || newPrometheusProviderMetrics == nil {
		return nil
	}
	return newPrometheusProviderMetrics()
}

// newPrometheusProviderMetrics is set by pkg/metrics/prometheus, which
// imports this package.
var newPrometheusProviderMetrics func() ProviderMetrics

// RegisterProviderMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterProviderMetricsConstructor(constructor func() ProviderMetrics) {
	newPrometheusProviderMetrics = constructor
}

// RecordLogon records a logon outcome on m when m is non-nil.
func RecordLogon(m ProviderMetrics, pkg, result string) {
	if m != nil {
		m.RecordLogon(pkg, result)
	}
}

// SetHandles records a handle count on m when m is non-nil.
func SetHandles(m ProviderMetrics, kind string, count int) {
	if m != nil {
		m.SetHandles(kind, count)
	}
}

// RecordMessage records a protected message on m when m is non-nil.
func RecordMessage(m ProviderMetrics, op string, bytes int) {
	if m != nil {
		m.RecordMessage(op, bytes)
	}
}
