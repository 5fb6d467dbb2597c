package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bkconnect/internal/metrics"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	return logger, buf
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	logger, buf := newTestLogger()
	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/news", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	entry := decodeLogLine(t, buf)
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v, want POST", entry["method"])
	}
	if entry["path"] != "/api/news" {
		t.Errorf("path = %v, want /api/news", entry["path"])
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusCreated)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_ms should be logged")
	}
}

func TestLoggingMiddleware_LogsIdentityIDWhenAuthenticated(t *testing.T) {
	logger, buf := newTestLogger()
	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, "identity-123"))

	entry := decodeLogLine(t, buf)
	if entry["identity_id"] != "identity-123" {
		t.Errorf("identity_id = %v, want identity-123", entry["identity_id"])
	}
}

func TestLoggingMiddleware_ErrorStatusLogsAtErrorLevel(t *testing.T) {
	logger, buf := newTestLogger()
	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	entry := decodeLogLine(t, buf)
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
}

func TestLoggingMiddleware_ClientErrorLogsAtWarnLevel(t *testing.T) {
	logger, buf := newTestLogger()
	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	entry := decodeLogLine(t, buf)
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
}

func TestLoggingMiddleware_DefaultsTo200WhenWriteHeaderNotCalled(t *testing.T) {
	logger, buf := newTestLogger()
	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	entry := decodeLogLine(t, buf)
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusOK)
	}
}

func TestLoggingMiddleware_RecordsMetrics(t *testing.T) {
	logger, _ := newTestLogger()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	mw := NewLoggingMiddleware(logger, collector)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	var statusCount float64
	for _, family := range families {
		if family.GetName() != "bkconnect_http_status_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status_code" && label.GetValue() == "200" {
					statusCount = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if statusCount != 3 {
		t.Errorf("http status 200 count = %v, want 3", statusCount)
	}
}
