package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func get(t *testing.T, s *AdminServer, path string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]string
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return rec, body
}

func TestHealthEndpoint(t *testing.T) {
	s := New(nil, zerolog.Nop())

	rec, body := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestReadyWithoutProbe(t *testing.T) {
	s := New(nil, zerolog.Nop())

	rec, body := get(t, s, "/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ready" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestReadyReportsProbeFailure(t *testing.T) {
	s := New(func() error { return errors.New("database unreachable") }, zerolog.Nop())

	rec, body := get(t, s, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body["error"] != "database unreachable" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(nil, zerolog.Nop())

	rec, _ := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
