package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthAttempts  *prometheus.CounterVec
	SeatingWrites *prometheus.CounterVec
	SeatingMoves  *prometheus.CounterVec
	RSVPs         prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_auth_attempts_total",
			Help: "Guest verification attempts by outcome.",
		}, []string{"outcome"}),
		SeatingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_seating_writes_total",
			Help: "Per-guest seat updates issued by the reconciler and manual entry.",
		}, []string{"result"}),
		SeatingMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_seating_moves_total",
			Help: "Seating moves by result.",
		}, []string{"result"}),
		RSVPs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wedding_rsvps_total",
			Help: "RSVPs accepted.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.AuthAttempts, m.SeatingWrites, m.SeatingMoves, m.RSVPs)
	}
	return m
}

// AuthAttempt counts one verification outcome: matched, no_match, invalid or error.
func (m *Metrics) AuthAttempt(outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(outcome).Inc()
}

// SeatingWrite counts one seat update: ok or failed.
func (m *Metrics) SeatingWrite(result string) {
	if m == nil {
		return
	}
	m.SeatingWrites.WithLabelValues(result).Inc()
}

// SeatingMove counts one move: applied, noop, dropped or error.
func (m *Metrics) SeatingMove(result string) {
	if m == nil {
		return
	}
	m.SeatingMoves.WithLabelValues(result).Inc()
}

// RSVPAccepted counts one stored RSVP.
func (m *Metrics) RSVPAccepted() {
	if m == nil {
		return
	}
	m.RSVPs.Inc()
}
