package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveResolution(OutcomeMatch)
	m.ObserveResolution(OutcomeMatch)
	m.ObserveResolution(OutcomeNoMatch)
	m.ObserveCacheLookup(LookupMiss)
	m.ObserveEmbedderLoad(50 * time.Millisecond)
	m.ObserveRank("lexical", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(OutcomeMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(OutcomeNoMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(LookupMiss)))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResolution(OutcomeError)
		m.ObserveCacheLookup(LookupHit)
		m.ObserveEmbedderLoad(time.Second)
		m.ObserveRank("vector", time.Second)
	})
}
