// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

// Package handler provides the HTTP surface of the Wholecell proxy: a fixed
// set of GET routes that forward to the upstream inventory API and shape the
// outcome into JSON envelopes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wholesale-dashboard/wholecell-proxy/internal/wholecell"
)

const serviceName = "Wholecell API Proxy"

// knownTestIMEIs is the fixed identifier list exercised by the batch test
// route. Order is significant: results are reported in this order.
var knownTestIMEIs = []string{"H95DHMF9Q1GC", "F9FG5XAJQ1GC", "F9GG5BXXQ1GC"}

// InventoryClient defines the upstream operations the handlers need.
// This allows the handlers to be tested with a mock client.
type InventoryClient interface {
	Fetch(ctx context.Context, params url.Values) (json.RawMessage, error)
}

// Info carries the non-secret configuration facts the routes report.
// Secret values themselves never reach this package.
type Info struct {
	Version             string
	APIBase             string
	AppIDConfigured     bool
	AppSecretConfigured bool
}

// Handler provides HTTP handlers for the proxy routes.
type Handler struct {
	client InventoryClient
	info   Info
	log    *slog.Logger
}

// New creates a new Handler with the given upstream client, configuration
// facts, and logger.
func New(client InventoryClient, info Info, log *slog.Logger) *Handler {
	return &Handler{
		client: client,
		info:   info,
		log:    log,
	}
}

// Routes returns an http.Handler with all routes registered and the
// middleware chain applied (OTel, request id, CORS, access log).
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/inventory", h.handleInventory)
	mux.HandleFunc("GET /api/inventory/{esn}", h.handleInventoryByESN)
	mux.HandleFunc("GET /api/test/known-imeis", h.handleKnownIMEIs)
	mux.HandleFunc("GET /api/test/{esn}", h.handleTestESN)
	mux.HandleFunc("GET /api/config", h.handleConfig)

	return otelhttp.NewHandler(requestID(cors(h.accessLog(mux))), "wholecell-proxy")
}

// handleHome reports service status and the available routes.
func (h *Handler) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "running",
		"service": serviceName,
		"version": h.info.Version,
		"endpoints": []string{
			"/api/inventory",
			"/api/inventory/{esn}",
			"/api/test/{esn}",
			"/api/test/known-imeis",
			"/api/config",
			"/api/health",
		},
	})
}

// handleHealth is the liveness probe.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      nowUTC(),
		"api_configured": h.info.AppIDConfigured && h.info.AppSecretConfigured,
	})
}

// handleInventory forwards every inbound query parameter to the upstream
// list endpoint and returns the upstream body unmodified on success.
func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	h.log.InfoContext(ctx, "fetching inventory", slog.Int("params", len(params)))

	raw, err := h.client.Fetch(ctx, params)
	if err != nil {
		h.log.WarnContext(ctx, "inventory fetch failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error:     errorMessage(err),
			Timestamp: nowUTC(),
		})
		return
	}

	// Pass the upstream body through byte-for-byte; no re-wrapping.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// handleInventoryByESN fetches a single item by its ESN/IMEI path parameter.
func (h *Handler) handleInventoryByESN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	esn := r.PathValue("esn")

	h.log.InfoContext(ctx, "fetching inventory by esn", slog.String("esn", esn))

	raw, err := h.client.Fetch(ctx, url.Values{"esn": []string{esn}})
	if err != nil {
		h.writeFetchError(ctx, w, esn, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      raw,
		"esn":       esn,
		"timestamp": nowUTC(),
	})
}

// handleTestESN is the diagnostic variant of fetch-by-identifier: the same
// upstream call, plus a structural analysis of the payload and a full copy
// logged server-side.
func (h *Handler) handleTestESN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	esn := r.PathValue("esn")

	h.log.InfoContext(ctx, "diagnostic fetch", slog.String("esn", esn))

	raw, err := h.client.Fetch(ctx, url.Values{"esn": []string{esn}})
	if err != nil {
		h.writeFetchError(ctx, w, esn, err)
		return
	}

	analysis := wholecell.Analyze(raw)
	h.log.DebugContext(ctx, "full upstream response",
		slog.String("esn", esn),
		slog.String("response_type", analysis.ResponseType),
		slog.String("payload", string(raw)),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      raw,
		"analysis":  analysis,
		"esn":       esn,
		"timestamp": nowUTC(),
		"message":   "Check server logs for detailed response structure",
	})
}

// batchResult is the per-identifier outcome of the known-IMEI test route.
type batchResult struct {
	IMEI      string               `json:"imei"`
	Success   bool                 `json:"success"`
	Found     bool                 `json:"found"`
	Data      json.RawMessage      `json:"data,omitempty"`
	Extracted *wholecell.Extracted `json:"extracted,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// handleKnownIMEIs probes the fixed identifier list with one sequential
// upstream call each. Per-item failures are reported inline; the route
// itself always answers 200.
func (h *Handler) handleKnownIMEIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.log.InfoContext(ctx, "testing known IMEIs", slog.Int("count", len(knownTestIMEIs)))

	results := make([]batchResult, 0, len(knownTestIMEIs))
	successful := 0

	for _, imei := range knownTestIMEIs {
		raw, err := h.client.Fetch(ctx, url.Values{"esn": []string{imei}})
		if err != nil {
			h.log.WarnContext(ctx, "known IMEI fetch failed",
				slog.String("imei", imei),
				slog.String("error", err.Error()),
			)
			results = append(results, batchResult{
				IMEI:  imei,
				Error: errorMessage(err),
			})
			continue
		}

		successful++
		result := batchResult{IMEI: imei, Success: true, Found: true, Data: raw}

		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			if item := wholecell.FirstItem(data); item != nil {
				extracted := wholecell.ExtractFields(item)
				result.Extracted = &extracted
			}
		}
		results = append(results, result)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_tested": len(knownTestIMEIs),
		"successful":   successful,
		"failed":       len(knownTestIMEIs) - successful,
		"results":      results,
		"timestamp":    nowUTC(),
	})
}

// handleConfig reports which configuration values are set, never their values.
func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"api_base":              h.info.APIBase,
		"app_id_configured":     h.info.AppIDConfigured,
		"app_secret_configured": h.info.AppSecretConfigured,
	})
}

// errorEnvelope is the JSON structure for failed forwarding responses.
// Success is always false and serialized explicitly.
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ESN       string `json:"esn,omitempty"`
	Timestamp string `json:"timestamp"`
}

// writeFetchError maps an upstream failure for an identifier route onto the
// local status code: not-found stays 404, everything else is 500.
func (h *Handler) writeFetchError(ctx context.Context, w http.ResponseWriter, esn string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, wholecell.ErrNotFound) {
		status = http.StatusNotFound
	}

	h.log.WarnContext(ctx, "esn fetch failed",
		slog.String("esn", esn),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	writeJSON(w, status, errorEnvelope{
		Error:     errorMessage(err),
		ESN:       esn,
		Timestamp: nowUTC(),
	})
}

// errorMessage converts a classified upstream error into the short message
// exposed to clients.
func errorMessage(err error) string {
	var se *wholecell.StatusError
	switch {
	case errors.Is(err, wholecell.ErrUnauthorized):
		return "Authentication failed"
	case errors.Is(err, wholecell.ErrNotFound):
		return "Not found"
	case errors.Is(err, wholecell.ErrTimeout):
		return "Request timed out"
	case errors.Is(err, wholecell.ErrConnection):
		return "Could not connect to Wholecell API"
	case errors.As(err, &se):
		return fmt.Sprintf("API error: %d", se.StatusCode)
	default:
		return err.Error()
	}
}

// nowUTC returns the current time as an RFC 3339 UTC timestamp.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
