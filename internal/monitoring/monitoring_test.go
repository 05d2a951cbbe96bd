package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestHealthMonitor_AggregatesStatus(t *testing.T) {
	h := NewHealthMonitor("test")
	h.RegisterChecker(NewFuncChecker("redis", func(ctx context.Context) error { return nil }))

	health := h.GetHealth(context.Background())
	if health.Status != HealthStatusOK {
		t.Fatalf("status = %s", health.Status)
	}

	h.RegisterChecker(NewFuncChecker("clickhouse", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	health = h.GetHealth(context.Background())
	if health.Status != HealthStatusDown {
		t.Errorf("status = %s, want down", health.Status)
	}
	if c := health.Components["clickhouse"]; c == nil || c.Message != "connection refused" {
		t.Errorf("component = %+v", c)
	}
}

func TestHealthHandlers(t *testing.T) {
	h := NewHealthMonitor("test")
	h.RegisterChecker(NewFuncChecker("backend", func(ctx context.Context) error {
		return errors.New("down")
	}))

	rec := httptest.NewRecorder()
	h.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["status"] != "alive" {
		t.Errorf("liveness = %v, %v", body, err)
	}
}

func TestAPIHealthChecker(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewAPIHealthChecker("backend", srv.URL)
	health, err := c.Check(context.Background())
	if err != nil || health.Status != HealthStatusOK {
		t.Errorf("401 should count as reachable: %+v, %v", health, err)
	}

	status = http.StatusBadGateway
	if _, err := c.Check(context.Background()); err == nil {
		t.Error("expected error on 502")
	}
}

func TestMetrics_ExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.RecordPreview("api", "success", 120*time.Millisecond)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordStale()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/7", nil))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	data, _ := io.ReadAll(rec.Body)
	body := string(data)

	for _, want := range []string{
		`click_lite_reports_preview_runs_total{executor="api",status="success"} 1`,
		`click_lite_reports_cache_lookups_total{result="hit"} 1`,
		`click_lite_reports_preview_stale_results_total 1`,
		`click_lite_reports_http_requests_total{code="404",method="GET",route="/api/reports/{id}"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordPreview("api", "error", time.Second)
	m.RecordCache(true)
	m.RecordStale()
	m.RecordOptions("success")
	m.SetWSClients(3)
}
