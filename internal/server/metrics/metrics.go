// Package metrics exposes Prometheus counters for logins, signed-token
// checks, sessions and downloads.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fileshare"

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	Logins          *prometheus.CounterVec
	TokenDecodes    *prometheus.CounterVec
	SessionsCreated *prometheus.CounterVec
	SessionsRevoked *prometheus.CounterVec
	Downloads       *prometheus.CounterVec
	Signups         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. With a nil reg
// they are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by principal variant and outcome.",
		}, []string{"variant", "outcome"}),
		TokenDecodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "decodes_total",
			Help:      "Signed token checks by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions issued by principal variant.",
		}, []string{"variant"}),
		SessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "revoked_total",
			Help:      "Logout requests by principal variant.",
		}, []string{"variant"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "downloads_total",
			Help:      "Download link events by stage and outcome.",
		}, []string{"stage", "outcome"}),
		Signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Client signups and verifications by outcome.",
		}, []string{"stage", "outcome"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.Logins, m.TokenDecodes, m.SessionsCreated, m.SessionsRevoked, m.Downloads, m.Signups,
		} {
			if err := reg.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					panic(err)
				}
			}
		}
	}

	return m
}

func (m *Metrics) Login(variant, outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) TokenDecode(purpose, outcome string) {
	if m == nil {
		return
	}
	m.TokenDecodes.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) SessionCreated(variant string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(variant).Inc()
}

func (m *Metrics) SessionRevoked(variant string) {
	if m == nil {
		return
	}
	m.SessionsRevoked.WithLabelValues(variant).Inc()
}

// Download records a "link" or "redeem" stage outcome.
func (m *Metrics) Download(stage, outcome string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(stage, outcome).Inc()
}

// Signup records a "request" or "verify" stage outcome.
func (m *Metrics) Signup(stage, outcome string) {
	if m == nil {
		return
	}
	m.Signups.WithLabelValues(stage, outcome).Inc()
}
