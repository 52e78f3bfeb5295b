package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDecisionMetricsExistAndIncrement(t *testing.T) {
	lbl := "test-cluster"

	PermissionDecisions.WithLabelValues(lbl, "view", "allowed").Inc()
	if v := testutil.ToFloat64(PermissionDecisions.WithLabelValues(lbl, "view", "allowed")); v < 1 {
		t.Fatalf("expected PermissionDecisions >= 1, got %v", v)
	}

	NamespaceGateDenied.WithLabelValues(lbl).Add(2)
	if v := testutil.ToFloat64(NamespaceGateDenied.WithLabelValues(lbl)); v < 2 {
		t.Fatalf("expected NamespaceGateDenied >= 2, got %v", v)
	}

	RegistryReloads.WithLabelValues("success").Inc()
	if v := testutil.ToFloat64(RegistryReloads.WithLabelValues("success")); v < 1 {
		t.Fatalf("expected RegistryReloads >= 1, got %v", v)
	}
}

func TestMetricsHandlerServesExposition(t *testing.T) {
	UnknownScopeRequests.Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	MetricsHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected non-empty metrics exposition")
	}
}
