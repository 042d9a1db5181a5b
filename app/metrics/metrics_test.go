package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibast-solutions/ms-go-account/app/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(metrics.Middleware)
	e.GET("/confirm/:token", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/confirm/:token", "204"))

	req := httptest.NewRequest(http.MethodGet, "/confirm/some-secret-token", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/confirm/:token", "204"))
	if after != before+1 {
		t.Fatalf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestMustRegister_AddsServiceLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg, "account")

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() != "account_logins_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "service" && lp.GetValue() == "account" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected account_logins_total with service label")
	}
}
