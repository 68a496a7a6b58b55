package metrics

import (
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/session"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "console_session"

var _ session.Metrics = (*SessionMetrics)(nil)

// SessionMetrics records refresh, retry and session end events
type SessionMetrics struct {
	Refreshes       *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	Retries         prometheus.Counter
	SessionEnds     *prometheus.CounterVec
}

// NewSessionMetrics registers the collectors with reg
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refreshes_total",
				Help:      "Refresh calls made to the identity source",
			},
			[]string{"trigger", "outcome"},
		),
		RefreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Latency of refresh calls",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"trigger"},
		),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unauthorized_retries_total",
			Help:      "Requests retried after a 401",
		}),
		SessionEnds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_ends_total",
				Help:      "Sessions ended by logout or expiry",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.Refreshes, m.RefreshDuration, m.Retries, m.SessionEnds)
	return m
}

func (m *SessionMetrics) RefreshCompleted(trigger session.Trigger, err error, seconds float64) {
	m.Refreshes.WithLabelValues(string(trigger), outcome(err)).Inc()
	m.RefreshDuration.WithLabelValues(string(trigger)).Observe(seconds)
}

func (m *SessionMetrics) RequestRetried() {
	m.Retries.Inc()
}

func (m *SessionMetrics) SessionEnded(reason session.EndReason) {
	m.SessionEnds.WithLabelValues(string(reason)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.Is(err, apperrors.ErrRevokedToken):
		return "revoked"
	default:
		return "network"
	}
}
