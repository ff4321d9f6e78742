package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OwnRegistry(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, m.Gatherer())

	m.AdmissionOutcomes.WithLabelValues(StateAdmitted).Inc()
	m.AdmissionOutcomes.WithLabelValues(StateRejected).Add(2)
	m.InboundDropped.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AdmissionOutcomes.WithLabelValues(StateAdmitted)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AdmissionOutcomes.WithLabelValues(StateRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InboundDropped))

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "pragmalink_admission_outcomes_total")
	assert.Contains(t, names, "pragmalink_inbound_dropped_total")
}

func TestNew_ExternalRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	assert.Nil(t, m.Gatherer())

	// 同一 Registerer 上重复注册报错
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNop_Independent(t *testing.T) {
	a := Nop()
	b := Nop()
	a.PublishFailures.Inc()
	assert.Equal(t, float64(0), testutil.ToFloat64(b.PublishFailures))
}
