package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	return m, c
}

func getMetricOutput(t *testing.T, collector MetricsCollector) string {
	return scrapeMetrics(t, collector)
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.InternmentsReportedTotal)
	assert.NotNil(t, m.InternmentTransitionsTotal)
	assert.NotNil(t, m.QuotationRoundsOpenedTotal)
	assert.NotNil(t, m.JobRunsTotal)
	assert.NotNil(t, m.NotificationsCreated)
	assert.NotNil(t, m.HolidayFetchTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest_AllMetricsUpdated(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordHTTPRequest(m, "GET", "/api/v1/internaciones", 200, 100*time.Millisecond)

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="GET",path="/api/v1/internaciones",status_code="200"} 1`)
	assert.Contains(t, output, `test_unit_http_request_duration_seconds_count{method="GET",path="/api/v1/internaciones"} 1`)
}

func TestRecordTransition(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordTransition(m, "INICIADA", "ACTIVA", "extension_requested")

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_internment_transitions_total{from="INICIADA",to="ACTIVA",trigger="extension_requested"} 1`)
}

func TestRecordJobRun_Success(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordJobRun(m, "inactivation", 2*time.Second, 12, 1, nil)

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_job_runs_total{job="inactivation",status="success"} 1`)
	assert.Contains(t, output, `test_unit_job_records_processed_total{job="inactivation"} 12`)
	assert.Contains(t, output, `test_unit_job_records_failed_total{job="inactivation"} 1`)
	assert.Contains(t, output, `test_unit_job_duration_seconds_count{job="inactivation"} 1`)
}

func TestRecordJobRun_Failure(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordJobRun(m, "quotation_expiry", time.Second, 0, 0, assert.AnError)

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_job_runs_total{job="quotation_expiry",status="failure"} 1`)
}

func TestRecordNotification(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordNotification(m, "INTERNACION_POR_VENCER", true)
	RecordNotification(m, "INTERNACION_POR_VENCER", false)
	RecordNotification(m, "INTERNACION_POR_VENCER", false)

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_notifications_created_total{kind="INTERNACION_POR_VENCER"} 1`)
	assert.Contains(t, output, `test_unit_notifications_deduplicated_total{kind="INTERNACION_POR_VENCER"} 2`)
}

func TestRecordCacheAccess_Hit(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "holidays", true)

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_cache_hits_total{cache="holidays"} 1`)
}

func TestRecordCacheAccess_Miss(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "holidays", false)

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_cache_misses_total{cache="holidays"} 1`)
}

func TestRecordError(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordError(m, "postgres", "query_error", "error")

	output := getMetricOutput(t, c)
	assert.Contains(t, output, `test_unit_errors_total{component="postgres",error_type="query_error",severity="error"} 1`)
}

func TestDefaultBuckets(t *testing.T) {
	assert.NotNil(t, DefaultHTTPDurationBuckets)
	assert.NotNil(t, DefaultJobDurationBuckets)
	assert.NotNil(t, DefaultDBDurationBuckets)
}

func TestConcurrentMetricRecording(t *testing.T) {
	m, _ := newTestAppMetrics(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				RecordHTTPRequest(m, "GET", "/path", 200, time.Millisecond)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
