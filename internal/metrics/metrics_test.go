package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.VotesSaved.WithLabelValues("created").Inc()
	m.LoginAttempts.WithLabelValues("success").Add(2)
	m.AggregationDuration.WithLabelValues("dashboard").Observe(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesSaved.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}

func TestNop_DoesNotRegister(t *testing.T) {
	m1 := Nop()
	m2 := Nop()
	m1.VotesSaved.WithLabelValues("created").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.VotesSaved.WithLabelValues("created")))
}
