package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewProviderMetricsWith(reg)
	require.NotNil(t, m)

	m.RecordLogon("NTLM", "success")
	m.RecordLogon("NTLM", "denied")
	m.RecordLogon("NTLM", "denied")
	m.SetHandles("context", 3)
	m.SetHandles("context", 2)
	m.RecordMessage("seal", 128)

	pm := m.(*providerMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.logons.WithLabelValues("NTLM", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.logons.WithLabelValues("NTLM", "denied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.handles.WithLabelValues("context")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.messages.WithLabelValues("seal")))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.messageBytes))
}

func TestNilProviderMetrics(t *testing.T) {
	var m *providerMetrics
	assert.NotPanics(t, func() {
		m.RecordLogon("NTLM", "success")
		m.SetHandles("credential", 1)
		m.RecordMessage("sign", 10)
	})
}
