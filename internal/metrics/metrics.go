// Package metrics defines the Prometheus collectors for the authorization
// layer. A standalone package so token, auth and http can share them without
// import cycles.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wirus_auth_tokens_issued_total",
		Help: "Tokens issued, by kind (auth_code, access_token, identity)",
	}, []string{"kind"})

	GrantFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wirus_auth_grant_failures_total",
		Help: "Failed grant attempts, by grant type",
	}, []string{"grant"})

	KeyFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wirus_auth_key_fetches_total",
		Help: "Remote platform public key fetches, by outcome",
	}, []string{"outcome"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wirus_auth_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

// ObserveRequest feeds the latency histogram.
func ObserveRequest(route string, status int, elapsed time.Duration) {
	RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Register registers all collectors on the given registry (or the default if
// nil). Re-registration is tolerated so tests can call it freely.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		TokensIssued,
		GrantFailures,
		KeyFetches,
		RequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
