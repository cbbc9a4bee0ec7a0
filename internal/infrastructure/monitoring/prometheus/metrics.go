package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Fragment Layer
	MoleculesTotal        CounterVec
	MoleculeFailuresTotal CounterVec
	MoleculeDuration      HistogramVec
	BatchesTotal          CounterVec
	BatchSize             HistogramVec
	BatchDuration         HistogramVec
	DistinctFragments     GaugeVec

	// Infrastructure Layer
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	CacheErrorsTotal  CounterVec
	MessagesTotal     CounterVec
	ResultUploadTotal CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultMoleculeDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5}
	DefaultBatchDurationBuckets    = []float64{.01, .1, .5, 1, 5, 10, 30, 60, 300, 1800}
	DefaultBatchSizeBuckets        = []float64{1, 10, 100, 1000, 10000, 100000}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	// Fragment
	m.MoleculesTotal = collector.RegisterCounter("molecules_total", "Molecules decomposed, by outcome", "status")
	m.MoleculeFailuresTotal = collector.RegisterCounter("molecule_failures_total", "Molecule failures, by error code", "code")
	m.MoleculeDuration = collector.RegisterHistogram("molecule_duration_seconds", "Time spent decomposing one molecule", DefaultMoleculeDurationBuckets, "status")
	m.BatchesTotal = collector.RegisterCounter("batches_total", "Batches decomposed")
	m.BatchSize = collector.RegisterHistogram("batch_size", "Molecules per batch", DefaultBatchSizeBuckets)
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Time spent on one batch", DefaultBatchDurationBuckets)
	m.DistinctFragments = collector.RegisterGauge("distinct_fragments", "Distinct fragment strings in the last batch")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.CacheErrorsTotal = collector.RegisterCounter("cache_errors_total", "Cache errors", "cache", "operation")
	m.MessagesTotal = collector.RegisterCounter("messages_total", "Broker messages handled", "topic", "status")
	m.ResultUploadTotal = collector.RegisterCounter("result_uploads_total", "Result uploads to object storage", "status")

	return m
}

// ObserveMolecule records the outcome of one molecule.
func (m *AppMetrics) ObserveMolecule(status, code string, elapsed time.Duration) {
	m.MoleculesTotal.WithLabelValues(status).Inc()
	m.MoleculeDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if code != "" {
		m.MoleculeFailuresTotal.WithLabelValues(code).Inc()
	}
}

// ObserveBatch records a finished batch.
func (m *AppMetrics) ObserveBatch(total, _, _ int, elapsed time.Duration) {
	m.BatchesTotal.WithLabelValues().Inc()
	m.BatchSize.WithLabelValues().Observe(float64(total))
	m.BatchDuration.WithLabelValues().Observe(elapsed.Seconds())
}

// SetDistinctFragments records the number of distinct fragments of a batch.
func (m *AppMetrics) SetDistinctFragments(n int) {
	m.DistinctFragments.WithLabelValues().Set(float64(n))
}

// Helpers

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheAccess records a cache lookup.
func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordCacheError records a failed cache operation.
func RecordCacheError(metrics *AppMetrics, cache, operation string) {
	metrics.CacheErrorsTotal.WithLabelValues(cache, operation).Inc()
}

// RecordMessage records a broker message.
func RecordMessage(metrics *AppMetrics, topic string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.MessagesTotal.WithLabelValues(topic, status).Inc()
}

// RecordUpload records a result upload.
func RecordUpload(metrics *AppMetrics, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.ResultUploadTotal.WithLabelValues(status).Inc()
}

//Personal.AI order the ending
