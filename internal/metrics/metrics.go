// Package metrics defines and registers all custom Prometheus metrics for the
// Freelancer OS API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "freelancer"

// ── Collection metrics ───────────────────────────────────────────────────────

// RecordMutationsTotal counts add, update and delete calls.
// Labels:
//   - collection: e.g. "clients", "invoices"
//   - op: "add", "update" or "delete"
//   - result: "ok", "invalid", "not_found", "unauthenticated" or "error"
var RecordMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_mutations_total",
		Help:      "Total number of record mutations, by collection, operation and result.",
	},
	[]string{"collection", "op", "result"},
)

// ActiveSubscriptions tracks the number of open snapshot subscriptions.
var ActiveSubscriptions = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_subscriptions",
		Help:      "Current number of live collection subscriptions.",
	},
	[]string{"collection"},
)

// SnapshotsDeliveredTotal counts snapshots produced for subscribers.
var SnapshotsDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_delivered_total",
		Help:      "Total number of collection snapshots delivered to subscribers.",
	},
	[]string{"collection"},
)

// SnapshotLoadDuration measures how long a full collection reload takes.
var SnapshotLoadDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_load_duration_seconds",
		Help:      "Duration of a full collection snapshot load.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"collection"},
)

// ── Feed metrics ─────────────────────────────────────────────────────────────

// FeedQueueDepth tracks notifications waiting in each local feed worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var FeedQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_queue_depth",
		Help:      "Current number of change notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Session metrics ──────────────────────────────────────────────────────────

// AuthAttemptsTotal counts sign-in and sign-up attempts.
// Labels:
//   - method: "password", "google" or "signup"
//   - result: "ok" or the AuthError kind
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// UploadsTotal counts profile photo uploads.
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of profile photo uploads, by result.",
	},
	[]string{"result"},
)
