// Package metrics declares the prometheus collectors exported by the scanner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "albion_market"

var (
	// PriceRequests counts price service responses by HTTP status ("error" for transport failures).
	PriceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_requests_total",
		Help:      "Price service requests by outcome.",
	}, []string{"status"})

	// PriceRetries counts backoff sleeps taken before retrying a batch.
	PriceRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_retries_total",
		Help:      "Retries issued against the price service.",
	})

	// FailedBatches counts price batches that degraded to an empty result.
	FailedBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_failed_batches_total",
		Help:      "Price batches that returned no data after exhausting retries.",
	})

	// RejectedRecords counts malformed quote records dropped at ingestion.
	RejectedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_rejected_records_total",
		Help:      "Quote records rejected by validation.",
	})

	// CycleDuration observes the wall time of a refresh cycle.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_cycle_duration_seconds",
		Help:      "Duration of a full refresh cycle.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	// Batches counts processed refresh batches by outcome.
	Batches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_batches_total",
		Help:      "Refresh batches by outcome.",
	}, []string{"outcome"})

	// TradesFound reports the number of trades in the latest ranked list.
	TradesFound = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "trades_found",
		Help:      "Trades in the latest refresh result.",
	})

	// NotificationsSent counts alerts delivered by the notifier.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Trade alerts delivered.",
	})
)

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
