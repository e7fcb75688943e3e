package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across packages.
func TestMetrics_Usable(t *testing.T) {
	// Route uses path template to avoid cardinality (e.g. /users/{id} not /users/42)
	HTTPRequestsTotal.WithLabelValues("GET", "/users/{id}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/users/{id}").Observe(0.01)
	UpstreamCallsTotal.WithLabelValues("pokeapi", "success").Inc()
	UpstreamDuration.WithLabelValues("openmeteo", "error").Observe(0.1)
	UpstreamRetriesTotal.WithLabelValues("pokeapi").Inc()
	CircuitBreakerState.WithLabelValues("pokeapi").Set(0)
	CacheHitsTotal.WithLabelValues("pokemon").Inc()
	CacheMissesTotal.WithLabelValues("pokemon").Inc()
	InsightsRecomputationsTotal.WithLabelValues(TriggerIngest).Inc()
	InsightsRecomputationsTotal.WithLabelValues(TriggerSchedule).Inc()
	InsightsRecomputationsTotal.WithLabelValues(TriggerRead).Inc()
	QueueMessagesTotal.WithLabelValues("acked").Inc()
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// TestCloseAll verifies every closer runs and errors are joined.
func TestCloseAll(t *testing.T) {
	var calls int
	errA := errors.New("a")
	err := CloseAll(
		closerFunc(func() error { calls++; return errA }),
		nil,
		closerFunc(func() error { calls++; return nil }),
	)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !errors.Is(err, errA) {
		t.Errorf("CloseAll() error = %v, want %v", err, errA)
	}
	var none []io.Closer
	if err := CloseAll(none...); err != nil {
		t.Errorf("CloseAll() with no closers = %v, want nil", err)
	}
}
