// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_Generated(t *testing.T) {
	var gotCtxID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCtxID = requestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	requestID(inner).ServeHTTP(rec, req)

	id := rec.Header().Get(requestIDHeader)
	if id == "" {
		t.Fatal("expected X-Request-Id on response")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated id %q is not a UUID: %v", id, err)
	}
	if gotCtxID != id {
		t.Errorf("context id %q does not match response header %q", gotCtxID, id)
	}
}

func TestRequestID_HonorsIncoming(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "caller-supplied-id")
	rec := httptest.NewRecorder()
	requestID(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "caller-supplied-id" {
		t.Errorf("X-Request-Id: got %q, want %q", got, "caller-supplied-id")
	}
}

func TestCORS_HeadersOnGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	cors(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want *", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/inventory", nil)
	rec := httptest.NewRecorder()
	cors(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if called {
		t.Error("preflight must not reach the inner handler")
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Access-Control-Max-Age: got %q, want 3600", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods: got %q", got)
	}
}

func TestAccessLog_RecordsStatusAndPath(t *testing.T) {
	var buf bytes.Buffer
	h := New(&mockClient{}, testInfo, slog.New(slog.NewJSONHandler(&buf, nil)))

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.accessLog(inner).ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v\nraw: %s", err, buf.String())
	}
	if entry["method"] != "GET" {
		t.Errorf("method: got %v", entry["method"])
	}
	if entry["path"] != "/api/health" {
		t.Errorf("path: got %v", entry["path"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status: got %v", entry["status"])
	}
}

func TestAccessLog_DefaultsTo200(t *testing.T) {
	var buf bytes.Buffer
	h := New(&mockClient{}, testInfo, slog.New(slog.NewJSONHandler(&buf, nil)))

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) // implicit 200
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.accessLog(inner).ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status: got %v, want 200", entry["status"])
	}
}
