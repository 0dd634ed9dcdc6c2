package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthAttempt("matched")
	m.AuthAttempt("matched")
	m.AuthAttempt("no_match")
	m.SeatingWrite("failed")
	m.SeatingMove("dropped")
	m.RSVPAccepted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("no_match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatingWrites.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatingMoves.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RSVPs))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.AuthAttempt("matched")
	m.SeatingWrite("ok")
	m.SeatingMove("applied")
	m.RSVPAccepted()
}
