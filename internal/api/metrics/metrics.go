// Package metrics defines and registers all custom Prometheus metrics for the
// rental listings API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rental"

// ── Listing metrics ───────────────────────────────────────────────────────────

// ListingsCreatedTotal counts listings created through the single-create endpoint.
// Label:
//   - source: "manual", "csv", or "scrape"
var ListingsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_created_total",
		Help:      "Total number of listings created one at a time, by source.",
	},
	[]string{"source"},
)

// ListingsDeletedTotal counts successful listing deletions.
var ListingsDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_deleted_total",
		Help:      "Total number of listings deleted.",
	},
)

// BulkRowsTotal counts the outcome of every row submitted to a bulk import.
// Label:
//   - outcome: "inserted", "duplicate", or "rejected"
var BulkRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_rows_total",
		Help:      "Total number of bulk import rows, labelled by outcome.",
	},
	[]string{"outcome"},
)

// ImportDedupTotal counts idempotency-key lookups for bulk imports.
// Label:
//   - result: "hit" (stored result replayed), "miss" (import executed) or
//     "busy" (rejected while the same key is still importing)
var ImportDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_dedup_total",
		Help:      "Total number of bulk import idempotency checks, labelled by result (hit/miss/busy).",
	},
	[]string{"result"},
)

// ── Account metrics ───────────────────────────────────────────────────────────

// AuthAttemptsTotal counts signup and login attempts.
// Labels:
//   - action: "signup" or "login"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of signup and login attempts, by action and result.",
	},
	[]string{"action", "result"},
)

// DocumentsUploadedTotal counts verification documents stored on disk.
// Label:
//   - content_type: the sniffed MIME type (e.g. "application/pdf")
var DocumentsUploadedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_uploaded_total",
		Help:      "Total number of verification documents stored, by content type.",
	},
	[]string{"content_type"},
)

// DocumentUploadBytes measures the size of individual stored documents.
var DocumentUploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "document_upload_bytes",
		Help:      "Size of stored verification documents in bytes.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 7), // 16KiB .. 64MiB
	},
)
