// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters live at package level so the character and web packages
// can record without holding a Server.
var (
	activeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_active_resolutions_total",
			Help: "Active character resolutions by the tier that produced the result",
		},
		[]string{"tier"},
	)
	characterDeletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_character_deletions_total",
			Help: "Character deletion attempts that reached the purge, by outcome",
		},
		[]string{"status"},
	)
	purgeRowsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armory_purge_rows_deleted_total",
			Help: "Dependent rows removed by committed character deletions",
		},
	)
	purgeTableErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armory_purge_table_errors_total",
			Help: "Dependent tables that were skipped or failed during a purge",
		},
		[]string{"table", "kind"},
	)
	preferredWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "armory_preferred_write_failures_total",
			Help: "Failed writes of the durable preferred character pointer",
		},
	)
)

// RecordActiveResolution counts a resolution served by tier.
func RecordActiveResolution(tier string) {
	activeResolutions.WithLabelValues(tier).Inc()
}

// RecordCharacterDeletion counts a deletion that ended with status.
func RecordCharacterDeletion(status string) {
	characterDeletions.WithLabelValues(status).Inc()
}

// RecordPurgeRowsDeleted adds n to the purged row total.
func RecordPurgeRowsDeleted(n int64) {
	if n > 0 {
		purgeRowsDeleted.Add(float64(n))
	}
}

// RecordPurgeTableError counts a skipped or failed table.
func RecordPurgeTableError(table, kind string) {
	purgeTableErrors.WithLabelValues(table, kind).Inc()
}

// RecordPreferredWriteFailure counts a failed preferred pointer write.
func RecordPreferredWriteFailure() {
	preferredWriteFailures.Inc()
}

// Metrics holds the HTTP surface metrics owned by a Server.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the HTTP metrics and registers them, together with the
// package-level domain counters, on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "armory_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "armory_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		activeResolutions,
		characterDeletions,
		purgeRowsDeleted,
		purgeTableErrors,
		preferredWriteFailures,
	)
	return m
}
