// Package metrics defines the gateway's Prometheus instruments in a
// standalone package so HTTP, session and upstream code can share them
// without import cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Gateway HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_ms",
		Help:    "Gateway HTTP request latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route"})

	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Calls to the inference backend by operation and outcome",
	}, []string{"op", "outcome"})

	// TokenRefreshes counts refresh attempts: ok, failed, shared (caller
	// joined an in-flight refresh), stale (result discarded after logout).
	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_token_refreshes_total",
		Help: "Session token refresh attempts by result",
	}, []string{"result"})

	AuthorizeDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_authorize_decisions_total",
		Help: "Route authorization decisions by outcome",
	}, []string{"decision"})

	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_events_total",
		Help: "Response cache hits and misses by key class",
	}, []string{"class", "event"})
)

// Register registers every instrument on reg (default registerer when nil).
// AlreadyRegistered is tolerated so tests can call it repeatedly.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HTTPRequests, HTTPDuration, UpstreamRequests,
		TokenRefreshes, AuthorizeDecisions, CacheHits,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
