package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
}

func (f fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }

func TestCollectorEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: authcore.MetricsSnapshot{
		Counters:   map[authcore.MetricID]uint64{},
		Histograms: map[authcore.MetricID][]uint64{},
	}})

	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: authcore.MetricsSnapshot{
		Counters: map[authcore.MetricID]uint64{
			authcore.MetricLoginSuccess:    7,
			authcore.MetricRegisterSuccess: 2,
		},
		Histograms: map[authcore.MetricID][]uint64{},
	}})

	expected := `
# HELP authcore_login_success_total Successful logins.
# TYPE authcore_login_success_total counter
authcore_login_success_total 7
# HELP authcore_register_success_total Accounts created.
# TYPE authcore_register_success_total counter
authcore_register_success_total 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"authcore_login_success_total", "authcore_register_success_total")
	require.NoError(t, err)
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: authcore.MetricsSnapshot{
		Counters: map[authcore.MetricID]uint64{},
		Histograms: map[authcore.MetricID][]uint64{
			authcore.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
		},
	}})

	expected := `
# HELP authcore_login_latency_seconds Login latency.
# TYPE authcore_login_latency_seconds histogram
authcore_login_latency_seconds_bucket{le="0.01"} 1
authcore_login_latency_seconds_bucket{le="0.025"} 3
authcore_login_latency_seconds_bucket{le="0.05"} 6
authcore_login_latency_seconds_bucket{le="0.1"} 10
authcore_login_latency_seconds_bucket{le="0.25"} 15
authcore_login_latency_seconds_bucket{le="0.5"} 21
authcore_login_latency_seconds_bucket{le="1"} 28
authcore_login_latency_seconds_bucket{le="+Inf"} 36
authcore_login_latency_seconds_sum 0
authcore_login_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "authcore_login_latency_seconds")
	require.NoError(t, err)
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	src := fakeSource{snapshot: authcore.MetricsSnapshot{
		Counters:   map[authcore.MetricID]uint64{authcore.MetricLogout: 3},
		Histograms: map[authcore.MetricID][]uint64{},
	}}

	rec := httptest.NewRecorder()
	Handler(src).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "authcore_logout_total 3")
	assert.Contains(t, string(body), "go_goroutines")
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollector(fakeSource{snapshot: authcore.MetricsSnapshot{
		Counters: map[authcore.MetricID]uint64{
			authcore.MetricLoginSuccess:   1000,
			authcore.MetricLoginFailure:   40,
			authcore.MetricRefreshSuccess: 800,
		},
		Histograms: map[authcore.MetricID][]uint64{
			authcore.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
		},
	}})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(c)
	}
}
