package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestHTTPHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncVerdict("passed")

	rr := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "dockeeper_verdicts_total") {
		t.Fatalf("expected verdict counter in scrape output, got:\n%s", body)
	}
}
