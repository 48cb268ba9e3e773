// Package metrics exposes Prometheus instrumentation for the upload
// service and the recording pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upload pipeline metrics
	takeUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkcells_take_uploads_total",
		Help: "Take upload attempts by storage backend and outcome",
	}, []string{"storage", "outcome"}) // storage=remote|local, outcome=success|failure

	storageFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkcells_storage_fallbacks_total",
		Help: "Total number of remote upload failures that fell back to local storage",
	})

	takeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkcells_take_duration_seconds",
		Help:    "Duration of accepted recording takes",
		Buckets: []float64{1, 2, 5, 8, 10, 12, 15},
	})

	takesPerTest = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkcells_takes_per_test",
		Help:    "Number of takes submitted per finished test",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkcells_test_submissions_total",
		Help: "Test record submissions by outcome",
	}, []string{"outcome"}) // outcome=success|upload_failed|record_failed|invalid

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkcells_http_requests_total",
		Help: "HTTP requests by route and status class",
	}, []string{"route", "status"})

	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkcells_http_request_duration_seconds",
		Help:    "HTTP request duration by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	uploadBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkcells_upload_bytes_total",
		Help: "Bytes accepted by the upload endpoints by storage backend",
	}, []string{"storage"})

	rejectedUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkcells_rejected_uploads_total",
		Help: "Uploads rejected before storage by reason",
	}, []string{"reason"}) // reason=mime_type|too_large|no_file
)

func IncTakeUpload(storage, outcome string) {
	takeUploadsTotal.WithLabelValues(storage, outcome).Inc()
}

func IncStorageFallback() { storageFallbacksTotal.Inc() }

func ObserveTakeDuration(seconds float64) { takeDurationSeconds.Observe(seconds) }

func ObserveTakesPerTest(n int) { takesPerTest.Observe(float64(n)) }

func IncSubmission(outcome string) { submissionsTotal.WithLabelValues(outcome).Inc() }

func IncHTTPRequest(route, status string) {
	httpRequestsTotal.WithLabelValues(route, status).Inc()
}

func ObserveHTTPDuration(route string, seconds float64) {
	httpRequestDurationSeconds.WithLabelValues(route).Observe(seconds)
}

func AddUploadBytes(storage string, n int64) {
	uploadBytesTotal.WithLabelValues(storage).Add(float64(n))
}

func IncRejectedUpload(reason string) { rejectedUploadsTotal.WithLabelValues(reason).Inc() }
