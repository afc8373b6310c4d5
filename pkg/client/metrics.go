package client

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for metrics.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Retry reasons.
const (
	retryCertificate = "certificate"
	retryTokenRenew  = "token_renew"
)

// metrics is nil when no registerer was configured; every method is nil-safe.
type metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	tokenRenewals *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	return &metrics{
		requests: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vault_client",
				Name:      "requests_total",
				Help:      "Total number of requests sent, by method and response code",
			},
			[]string{"method", "code"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vault_client",
				Name:      "request_duration_seconds",
				Help:      "Duration of a single HTTP attempt",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		)),
		retries: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vault_client",
				Name:      "retries_total",
				Help:      "Requests retried after a recoverable failure",
			},
			[]string{"reason"},
		)),
		tokenRenewals: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vault_client",
				Subsystem: "token",
				Name:      "renewals_total",
				Help:      "Token renewals and logins performed by the token manager",
			},
			[]string{"result"},
		)),
	}
}

// register returns the already registered collector when another client
// registered the same metric on reg first.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observeRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(method, label).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *metrics) observeRetry(reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
}

func (m *metrics) observeRenewal(err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.tokenRenewals.WithLabelValues(result).Inc()
}
