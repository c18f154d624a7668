// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

package wholecell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the vendor's production inventory endpoint.
	DefaultBaseURL = "https://api.wholecell.io/api/v1/inventories"

	// defaultTimeout bounds every upstream call. No retries, no backoff.
	defaultTimeout = 30 * time.Second

	acceptHeader = "application/json"
	scopeName    = "github.com/wholesale-dashboard/wholecell-proxy/internal/wholecell"
)

// HTTPClient is a concrete implementation of the Client interface that talks
// to the Wholecell API over HTTP with server-held credentials.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	log        *slog.Logger
	requests   metric.Int64Counter
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL sets the base URL for the Wholecell API.
func WithBaseURL(url string) Option {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.log = l
	}
}

// NewHTTPClient creates a new HTTPClient for the given credentials.
// By default it uses the production base URL, a 30 second timeout, an
// OTel-instrumented transport, and slog.Default() as the logger.
func NewHTTPClient(creds Credentials, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: DefaultBaseURL,
		creds:   creds,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	requests, err := otel.Meter(scopeName).Int64Counter("wholecell.client.requests",
		metric.WithDescription("Upstream Wholecell API requests by outcome."))
	if err != nil {
		c.log.Warn("failed to create request counter", slog.String("error", err.Error()))
	}
	c.requests = requests

	return c
}

// tracer returns the OTel tracer for this package.
func (c *HTTPClient) tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// setHeaders applies the fixed auth header bundle used on every call.
func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Basic "+c.creds.basicAuth())
	req.Header.Set("X-App-Id", c.creds.AppID)
	req.Header.Set("Accept", acceptHeader)
}

// count records the outcome of a single upstream call.
func (c *HTTPClient) count(ctx context.Context, outcome string) {
	if c.requests == nil {
		return
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Fetch performs a single authenticated GET against the configured base URL.
// Query parameters are passed through structurally and URL-encoded; their
// semantics (page, status, esn, ...) are opaque to this layer.
func (c *HTTPClient) Fetch(ctx context.Context, params url.Values) (json.RawMessage, error) {
	ctx, span := c.tracer().Start(ctx, "wholecell.fetch")
	defer span.End()

	fullURL := c.baseURL
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	span.SetAttributes(
		attribute.String("http.request.method", "GET"),
		attribute.String("url.full", fullURL),
		attribute.Int("wholecell.param_count", len(params)),
	)

	c.log.InfoContext(ctx, "making request to Wholecell",
		slog.String("url", fullURL),
		slog.Int("params", len(params)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.count(ctx, "error")
		return nil, fmt.Errorf("wholecell: creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransportError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.ErrorContext(ctx, "request failed", slog.String("error", err.Error()))
		c.count(ctx, transportOutcome(err))
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.log.InfoContext(ctx, "response received", slog.Int("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.count(ctx, "error")
			return nil, fmt.Errorf("wholecell: reading response body: %w", err)
		}
		if !json.Valid(body) {
			err := errors.New("wholecell: response body is not valid JSON")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.count(ctx, "error")
			return nil, err
		}
		c.count(ctx, "success")
		return json.RawMessage(body), nil

	case resp.StatusCode == http.StatusUnauthorized:
		c.log.ErrorContext(ctx, "authentication failed, check credentials")
		span.RecordError(ErrUnauthorized)
		span.SetStatus(codes.Error, ErrUnauthorized.Error())
		c.count(ctx, "unauthorized")
		return nil, ErrUnauthorized

	case resp.StatusCode == http.StatusNotFound:
		c.log.WarnContext(ctx, "resource not found")
		span.RecordError(ErrNotFound)
		span.SetStatus(codes.Error, ErrNotFound.Error())
		c.count(ctx, "not_found")
		return nil, ErrNotFound

	default:
		body, _ := io.ReadAll(resp.Body)
		err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		c.log.ErrorContext(ctx, "unexpected response", slog.Int("status", resp.StatusCode))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.count(ctx, "unexpected_status")
		return nil, err
	}
}

// StatusError reports an upstream HTTP status outside the classified set.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wholecell: unexpected status %d: %s", e.StatusCode, e.Body)
}

// classifyTransportError maps a transport failure onto the sentinel errors.
// Timeouts (including context deadline expiry) become ErrTimeout; everything
// else at the transport layer becomes ErrConnection.
func classifyTransportError(err error) error {
	var ue *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &ue) && ue.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
}

// transportOutcome names a classified transport error for the request counter.
func transportOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnection):
		return "connection_error"
	default:
		return "error"
	}
}
