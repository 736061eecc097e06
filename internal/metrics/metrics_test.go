package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FileScanned()
		m.FileFailed()
		m.BatchDropped()
		m.ObserveScan("duplicates", time.Second)
		m.CacheLookup("large_files", true)
		m.Invalidated(3)
		m.SetBucketBytes("duplicates", 10)
		m.MonitorEvent()
		m.MonitorDispatch()
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FileScanned()
	m.FileScanned()
	m.FileFailed()
	m.BatchDropped()
	m.Invalidated(4)
	m.Invalidated(0)
	m.MonitorEvent()
	m.MonitorDispatch()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesDropped))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CacheInvalidations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MonitorEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MonitorDispatches))
}

func TestCacheLookupLabels(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheLookup("large_files", true)
	m.CacheLookup("large_files", false)
	m.CacheLookup("large_files", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("large_files", ResultHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("large_files", ResultMiss)))
}

func TestBucketBytesGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetBucketBytes("temp_files", 100)
	m.SetBucketBytes("temp_files", 40)

	assert.Equal(t, 40.0, testutil.ToFloat64(m.BucketBytes.WithLabelValues("temp_files")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.FileScanned()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dirstat_files_scanned_total 1")
}
