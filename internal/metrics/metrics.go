package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketTierTotal counts market responses by resource and fallback tier
	MarketTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_market_tier_total",
			Help: "Total number of market data responses by fallback tier",
		},
		[]string{"resource", "tier"},
	)

	// ProviderRequestsTotal tracks outbound calls per upstream provider
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_provider_requests_total",
			Help: "Total number of upstream provider requests",
		},
		[]string{"provider", "method"},
	)

	// ProviderErrorsTotal tracks failed outbound calls per upstream provider
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_provider_errors_total",
			Help: "Total number of upstream provider errors",
		},
		[]string{"provider", "method"},
	)

	// ProviderLatency tracks upstream call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custody_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	RPCFailoverTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custody_rpc_failover_total",
			Help: "Total number of balance queries retried on the fallback endpoint",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custody_rate_limited_total",
			Help: "Total number of rejected user requests",
		},
	)

	// PlaceholderWalletsTotal must stay at zero in a healthy deployment
	PlaceholderWalletsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custody_placeholder_wallets_total",
			Help: "Total number of placeholder wallets synthesized after key generation failed",
		},
	)

	PersistenceRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_persistence_retries_total",
			Help: "Total number of minimal-data save retries by outcome",
		},
		[]string{"outcome"},
	)
)
