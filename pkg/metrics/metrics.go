// Package metrics exposes Prometheus collectors for resolutions, credential
// issuance, merges and the HTTP front-end.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apkfetch"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "attempts_total",
			Help:      "Catalog resolution attempts by credential source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	issuances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "issuances_total",
			Help:      "Credential issuance calls.",
		},
		[]string{"success"},
	)

	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "resolutions_total",
			Help:      "Finished resolutions by outcome.",
		},
		[]string{"outcome"},
	)

	resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of resolutions including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"outcome"},
	)

	mergeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "merge_duration_seconds",
			Help:      "Duration of artifact merges by strategy.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"strategy"},
	)

	artifactBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "artifact_bytes_total",
			Help:      "Bytes of assembled artifacts.",
		},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	Registry.MustRegister(
		attempts,
		issuances,
		resolutions,
		resolutionDuration,
		mergeDuration,
		artifactBytes,
		httpInFlight,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveAttempt counts one catalog attempt. source is cached or fresh,
// outcome is success or a failure kind.
func ObserveAttempt(source, outcome string) {
	attempts.WithLabelValues(source, outcome).Inc()
}

// ObserveIssuance counts one issuance call.
func ObserveIssuance(success bool) {
	issuances.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// ObserveResolution records a finished resolution.
func ObserveResolution(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	resolutions.WithLabelValues(outcome).Inc()
	resolutionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveMerge records one merge.
func ObserveMerge(strategy string, duration time.Duration, size int) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	mergeDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	artifactBytes.Add(float64(size))
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(strings.ToUpper(r.Method), canonicalPath(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// canonicalPath drops package names and download ids from the label.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 2 {
		return "/" + parts[0]
	}
	return "/api/" + parts[1]
}
