package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"patentrag/internal/httpapi"
)

func TestRequestLoggingMiddleware(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := requestLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"x"}`))
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status mismatch: got=%d", recorder.Code)
	}
	if recorder.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
	line := logBuffer.String()
	for _, want := range []string{"level=WARN", `msg="http request"`, "request_id=", "method=POST", "path=/", "status=502", "bytes=13", "duration_ms="} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
	if strings.Contains(line, "run_id=") {
		t.Fatalf("unexpected run id: %s", line)
	}
}

func TestRequestLoggingCarriesRunDetails(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, nil))

	handler := requestLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(httpapi.RunIDHeader, "run-42")
		w.Header().Set(httpapi.TurnsHeader, "3")
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(requestIDHeader, "client-7")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get(requestIDHeader); got != "client-7" {
		t.Fatalf("request id = %q", got)
	}
	line := logBuffer.String()
	for _, want := range []string{"level=INFO", "request_id=client-7", "status=200", "run_id=run-42", "turns=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
}

func TestProbeRequestsLogAtDebug(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, nil))
	handler := requestLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if logBuffer.Len() != 0 {
		t.Fatalf("health probe logged at info: %s", logBuffer.String())
	}
}
