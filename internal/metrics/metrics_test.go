package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorRecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveIngest(1024, 10*time.Millisecond, true)
	c.ObserveDownload(512, true)
	c.ObserveDelete(true)
	c.ObserveReap(3, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected at least one metric family registered")
	}
}

func TestHandlerServesExpositionFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected non-empty metrics body")
	}
}
