package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track ingestion volume
var (
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_api_events_ingested_total",
		Help: "Total number of contract events ingested into the store",
	})

	LedgersIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_api_ledgers_ingested_total",
		Help: "Total number of ledger partitions ingested",
	})

	BackfillRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_api_backfill_requests_total",
		Help: "Total number of on-demand backfill requests",
	})

	BackfillCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_api_backfill_coalesced_total",
		Help: "Backfill requests that joined an already in-flight fetch",
	})
)

// Performance metrics - Track fetch and decode latency
var (
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "events_api_fetch_duration_seconds",
		Help:    "Time taken to fetch a ledger object from the archive",
		Buckets: prometheus.DefBuckets,
	})

	DecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "events_api_decode_duration_seconds",
		Help:    "Time taken to decompress and decode a ledger object",
		Buckets: prometheus.DefBuckets,
	})

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "events_api_request_duration_seconds",
			Help:    "Time taken to serve an API request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// State metrics - Track current system state
var (
	LatestLedger = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "events_api_latest_ledger",
		Help: "Highest ledger sequence ingested into the store",
	})

	PartitionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "events_api_partitions",
		Help: "Number of ledger partitions currently cached",
	})

	SyncQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "events_api_sync_queue_depth",
		Help: "Number of fetched ledgers waiting to be committed in order",
	})
)

// Error and expiry metrics
var (
	SyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_api_sync_errors_total",
		Help: "Total number of transient errors hit by the sync loop",
	})

	PartitionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_api_partitions_expired_total",
		Help: "Total number of partitions removed by the TTL sweep",
	})
)

// API metrics
var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_api_requests_total",
			Help: "Total number of API requests by endpoint",
		},
		[]string{"endpoint"},
	)

	APIEventsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "events_api_events_returned",
		Help:    "Number of events returned per list request",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})
)
