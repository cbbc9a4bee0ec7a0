package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics_FragmentObservations(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.ObserveMolecule("success", "", 2*time.Millisecond)
	m.ObserveMolecule("success", "", time.Millisecond)
	m.ObserveMolecule("failed", "FRAG_001", time.Millisecond)
	m.ObserveBatch(3, 2, 1, 10*time.Millisecond)
	m.SetDistinctFragments(7)

	assert.Equal(t, 2.0, counterValue(t, c, "test_unit_molecules_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_molecules_total", map[string]string{"status": "failed"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_molecule_failures_total", map[string]string{"code": "FRAG_001"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_batches_total", nil))

	size := findMetric(t, c, "test_unit_batch_size")
	require.NotNil(t, size)
	assert.Equal(t, 3.0, size.GetMetric()[0].GetHistogram().GetSampleSum())

	distinct := findMetric(t, c, "test_unit_distinct_fragments")
	require.NotNil(t, distinct)
	assert.Equal(t, 7.0, distinct.GetMetric()[0].GetGauge().GetValue())
}

func TestAppMetrics_Helpers(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "POST", "/api/v1/fragments/count", 200, 5*time.Millisecond)
	RecordCacheAccess(m, "fragments", true)
	RecordCacheAccess(m, "fragments", false)
	RecordCacheAccess(m, "fragments", false)
	RecordCacheError(m, "fragments", "get")
	RecordMessage(m, "fragment.requests", true)
	RecordUpload(m, false)

	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_http_requests_total",
		map[string]string{"method": "POST", "path": "/api/v1/fragments/count", "status_code": "200"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_cache_hits_total", map[string]string{"cache": "fragments"}))
	assert.Equal(t, 2.0, counterValue(t, c, "test_unit_cache_misses_total", map[string]string{"cache": "fragments"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_cache_errors_total", map[string]string{"operation": "get"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_messages_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, c, "test_unit_result_uploads_total", map[string]string{"status": "failure"}))
}

//Personal.AI order the ending
