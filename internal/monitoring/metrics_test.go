package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.OrdersIngested.WithLabelValues(SourcePush).Inc()
	m.OrdersIngested.WithLabelValues(SourceSnapshot).Add(3)
	m.ConnectionState.Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersIngested.WithLabelValues(SourcePush)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OrdersIngested.WithLabelValues(SourceSnapshot)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionState))
}

func TestMetricsHandlerServes(t *testing.T) {
	m := NewMetrics()
	m.Reconnects.Inc()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gocha_push_reconnects_total 1")
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	// Each Metrics owns a private registry, so constructing two must not panic.
	a := NewMetrics()
	b := NewMetrics()
	a.Reconnects.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Reconnects))
}
