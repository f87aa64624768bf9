package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthz(t *testing.T) {
	start := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	now := start
	handlers := NewHealthHandlers(WithHealthClock(func() time.Time { return now }))
	now = start.Add(90 * time.Second)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handlers.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %q", body["status"])
	}
	if body["uptime"] != "1m30s" {
		t.Fatalf("unexpected uptime %q", body["uptime"])
	}
	if body["timestamp"] != "2025-06-18T12:01:30Z" {
		t.Fatalf("unexpected timestamp %q", body["timestamp"])
	}
}

func TestReadyzAllChecksPass(t *testing.T) {
	handlers := NewHealthHandlers(
		WithReadinessCheck("firestore", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("pubsub", func(ctx context.Context) error { return nil }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("expected ok status, got %q", body.Status)
	}
	if body.Checks["firestore"] != "ok" || body.Checks["pubsub"] != "ok" {
		t.Fatalf("unexpected checks %v", body.Checks)
	}
}

func TestReadyzDegraded(t *testing.T) {
	handlers := NewHealthHandlers(
		WithReadinessCheck("firestore", func(ctx context.Context) error { return errors.New("connection refused") }),
		WithReadinessCheck("pubsub", func(ctx context.Context) error { return nil }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("expected degraded status, got %q", body.Status)
	}
	if body.Checks["firestore"] != "connection refused" {
		t.Fatalf("unexpected firestore check %q", body.Checks["firestore"])
	}
	if body.Checks["pubsub"] != "ok" {
		t.Fatalf("unexpected pubsub check %q", body.Checks["pubsub"])
	}
}

func TestReadyzNoChecks(t *testing.T) {
	handlers := NewHealthHandlers()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
