package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(nil)
	m.Uploads.WithLabelValues(ResultOK).Inc()
	m.Uploads.WithLabelValues(ResultOK).Inc()
	m.Uploads.WithLabelValues(ResultRejected).Inc()
	m.Downloads.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Uploads.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues(ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downloads))
}

func TestActiveSessionsGauge(t *testing.T) {
	n := 3
	m := New(func() int { return n })
	expected := `
# HELP csvscope_active_sessions Uploaded tables currently held in memory.
# TYPE csvscope_active_sessions gauge
csvscope_active_sessions 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "csvscope_active_sessions"))
	n = 5
	expected = strings.Replace(expected, "sessions 3", "sessions 5", 1)
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "csvscope_active_sessions"))
}

func TestHandlerExposesChartTimings(t *testing.T) {
	m := New(nil)
	m.ObserveChart("spread", time.Now().Add(-10*time.Millisecond))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ChartRender))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `csvscope_chart_render_seconds_count{kind="spread"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestDownloadsCounterDescription(t *testing.T) {
	m := New(nil)
	m.Downloads.Inc()
	expected := `
# HELP csvscope_downloads_total Cleaned CSV downloads served.
# TYPE csvscope_downloads_total counter
csvscope_downloads_total 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "csvscope_downloads_total"))
}
