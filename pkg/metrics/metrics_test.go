package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestRegistry(t *testing.T) {
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func serve(t *testing.T, s *Server, method, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	body, _ := io.ReadAll(w.Result().Body)
	return w.Result().StatusCode, string(body)
}

func TestServer_Health(t *testing.T) {
	s := NewServer(":0", nil)

	status, body := serve(t, s, http.MethodGet, "/health")
	if status != http.StatusOK || body != "OK" {
		t.Errorf("GET /health = %d %q, want 200 OK", status, body)
	}

	if status, _ := serve(t, s, http.MethodPost, "/health"); status != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", status)
	}
}

func TestServer_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus int
		wantBody   string
	}{
		{"no checks", nil, http.StatusOK, "READY"},
		{
			"redis up",
			map[string]CheckFunc{"redis": func(context.Context) error { return nil }},
			http.StatusOK, "READY",
		},
		{
			"redis down",
			map[string]CheckFunc{"redis": func(context.Context) error { return errors.New("connection refused") }},
			http.StatusServiceUnavailable, "redis: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, NewServer(":0", tt.checks), http.MethodGet, "/ready")
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_metrics_server_test_total",
		Help: "Counter registered by the metrics server test",
	}).Inc()

	status, body := serve(t, NewServer(":0", nil), http.MethodGet, "/metrics")
	if status != http.StatusOK {
		t.Fatalf("GET /metrics = %d", status)
	}
	if !strings.Contains(body, "catalog_metrics_server_test_total 1") {
		t.Error("metrics output missing the test counter")
	}
}
