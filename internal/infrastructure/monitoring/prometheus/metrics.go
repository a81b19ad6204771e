package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Internment Layer
	InternmentsReportedTotal   CounterVec
	InternmentTransitionsTotal CounterVec
	ExtensionRequestsTotal     CounterVec

	// Medication Layer
	QuotationRoundsOpenedTotal CounterVec
	QuotationsSubmittedTotal   CounterVec
	AuthorizationsTotal        CounterVec

	// Scheduled Jobs
	JobRunsTotal         CounterVec
	JobDuration          HistogramVec
	JobRecordsProcessed  CounterVec
	JobRecordsFailed     CounterVec
	NotificationsCreated CounterVec
	NotificationsDeduped CounterVec

	// Business Calendar
	HolidayFetchTotal    CounterVec
	HolidayFetchDuration HistogramVec

	// Infrastructure Layer
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultJobDurationBuckets  = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Internment
	m.InternmentsReportedTotal = collector.RegisterCounter("internments_reported_total", "Internments reported by providers", "provider_id")
	m.InternmentTransitionsTotal = collector.RegisterCounter("internment_transitions_total", "Internment status transitions", "from", "to", "trigger")
	m.ExtensionRequestsTotal = collector.RegisterCounter("extension_requests_total", "Extension requests filed", "outcome")

	// Medication
	m.QuotationRoundsOpenedTotal = collector.RegisterCounter("quotation_rounds_opened_total", "Quotation rounds opened", "reopened")
	m.QuotationsSubmittedTotal = collector.RegisterCounter("quotations_submitted_total", "Pharmacy quotation submissions", "result")
	m.AuthorizationsTotal = collector.RegisterCounter("authorizations_total", "Medication authorizations", "result")

	// Jobs
	m.JobRunsTotal = collector.RegisterCounter("job_runs_total", "Scheduled job executions", "job", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Scheduled job duration", DefaultJobDurationBuckets, "job")
	m.JobRecordsProcessed = collector.RegisterCounter("job_records_processed_total", "Records processed by scheduled jobs", "job")
	m.JobRecordsFailed = collector.RegisterCounter("job_records_failed_total", "Records that failed inside a job run", "job")
	m.NotificationsCreated = collector.RegisterCounter("notifications_created_total", "Notifications delivered", "kind")
	m.NotificationsDeduped = collector.RegisterCounter("notifications_deduplicated_total", "Notifications suppressed by dedup", "kind")

	// Calendar
	m.HolidayFetchTotal = collector.RegisterCounter("holiday_fetch_total", "Holiday calendar fetches", "result")
	m.HolidayFetchDuration = collector.RegisterHistogram("holiday_fetch_duration_seconds", "Holiday calendar fetch duration", DefaultHTTPDurationBuckets, "country")

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// System Health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RegisterAppMetrics is an alias for NewAppMetrics.
func RegisterAppMetrics(collector MetricsCollector) *AppMetrics {
	return NewAppMetrics(collector)
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordTransition(metrics *AppMetrics, from, to, trigger string) {
	metrics.InternmentTransitionsTotal.WithLabelValues(from, to, trigger).Inc()
}

func RecordJobRun(metrics *AppMetrics, job string, duration time.Duration, processed, failed int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.JobRunsTotal.WithLabelValues(job, status).Inc()
	metrics.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	metrics.JobRecordsProcessed.WithLabelValues(job).Add(float64(processed))
	metrics.JobRecordsFailed.WithLabelValues(job).Add(float64(failed))
}

func RecordNotification(metrics *AppMetrics, kind string, inserted bool) {
	if inserted {
		metrics.NotificationsCreated.WithLabelValues(kind).Inc()
	} else {
		metrics.NotificationsDeduped.WithLabelValues(kind).Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}
