package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("ops", "success")
		m.TokenDecode("email-verify", "expired")
		m.SessionCreated("client")
		m.SessionRevoked("client")
		m.Download("link", "issued")
		m.Signup("request", "created")
	})
}

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Login("client", "email_not_verified")
	m.Login("client", "email_not_verified")
	m.TokenDecode("secure-download", "invalid")
	m.SessionCreated("ops")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("client", "email_not_verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenDecodes.WithLabelValues("secure-download", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreated.WithLabelValues("ops")))
}

func TestNew_ReRegisterDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.NotPanics(t, func() { New(reg) })
}
