package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddCreditsGranted("purchase", 3)
		m.AddCreditsDebited(1)
		m.IncrementCaseDraw("assigned")
		m.ObserveEndpointLatency("/x", "GET", time.Millisecond)
	})
}

func TestCountersAccumulate(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.AddCreditsGranted("purchase", 3)
	m.AddCreditsGranted("purchase", 2)
	m.IncrementCaseDraw("no_cases")

	assert.InDelta(t, 5, testutil.ToFloat64(m.CreditsGranted.WithLabelValues("purchase")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CaseDraws.WithLabelValues("no_cases")), 0.001)
}
