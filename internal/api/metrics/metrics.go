// Package metrics defines and registers the custom Prometheus metrics of the
// BATUTA dashboard. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered on the default registry at package init through
// promauto; the /metrics route serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "batuta"

// ── Upstream API metrics ──────────────────────────────────────────────────────

// UpstreamRequestsTotal counts calls made to the backend REST API.
// Labels:
//   - resource: first path segment after /api (e.g. "auth", "messages")
//   - method: HTTP method
//   - status: response status code, or "error" on transport failure
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of backend API calls.",
	},
	[]string{"resource", "method", "status"},
)

// UpstreamRequestDuration measures backend API latency.
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of backend API calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"resource", "method"},
)

// UpstreamAuthFailuresTotal counts 401/403 answers that triggered the login redirect.
var UpstreamAuthFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_auth_failures_total",
		Help:      "Total number of 401/403 backend answers handed to the auth failure hook.",
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - state: "authorized", "unauthenticated" or "forbidden"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome.",
	},
	[]string{"state"},
)

// SessionsClearedTotal counts sessions dropped, by reason
// (e.g. "logout", "refresh_failed", "me_failed").
var SessionsClearedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_cleared_total",
		Help:      "Total number of sessions cleared, by reason.",
	},
	[]string{"reason"},
)

// SubmissionDedupTotal counts double-submission checks.
// Label:
//   - result: "hit" (duplicate, rejected) or "miss" (first submission)
var SubmissionDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submission_dedup_total",
		Help:      "Total number of double-submission checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ── Messaging metrics ─────────────────────────────────────────────────────────

// UnreadStreamsActive tracks open unread-count SSE streams.
var UnreadStreamsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "unread_streams_active",
		Help:      "Number of open unread-count streams, one poller each.",
	},
)

// ReadReceiptsTotal counts mark-as-read deliveries.
// Label:
//   - result: "ok", "error" or "dropped"
var ReadReceiptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "read_receipts_total",
		Help:      "Total number of read receipts, by delivery result.",
	},
	[]string{"result"},
)

// ReadQueueDepth tracks the receipts waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ReadQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "read_queue_depth",
		Help:      "Current number of read receipts pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
