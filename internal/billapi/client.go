// Package billapi is the client for the remote bill-splitting HTTP API.
//
// Every call is a single attempt: no retries, no backoff. Calls are bounded by
// the client's timeout and by the caller's context.
package billapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/billsplitter/internal/metrics"
	"github.com/mmynk/billsplitter/internal/middleware"
	"github.com/mmynk/billsplitter/internal/models"
	"github.com/mmynk/billsplitter/pkg/logging"
)

const tracerName = "github.com/mmynk/billsplitter/internal/billapi"

// API is the set of remote operations the views depend on.
type API interface {
	ListBills(ctx context.Context) ([]models.Bill, error)
	GetBill(ctx context.Context, id int64) (*models.Bill, error)
	ListBillShares(ctx context.Context, id int64) ([]models.BillShare, error)
	CreateBill(ctx context.Context, bill models.BillCreate) (*models.Bill, error)
	UpdateBill(ctx context.Context, id int64, bill models.BillCreate) error
	ShareBill(ctx context.Context, id int64, alloc models.ShareAllocation) error
	DeleteBill(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, name string) (*models.User, error)
	ListUserBills(ctx context.Context, id int64) ([]models.Bill, error)

	Ping(ctx context.Context) error
}

// Ensure Client implements API
var _ API = (*Client)(nil)

// Client talks JSON to the API at a fixed base address.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every call. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTracerProvider sets where call spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpoint names one API operation.
type endpoint struct {
	op     string // metric label and span name, e.g. "CreateBill"
	action string // error wording, e.g. "create bill"
	method string
	path   string
}

// do performs one round trip. in is JSON-encoded when non-nil; out receives
// the decoded body when non-nil.
func (c *Client) do(ctx context.Context, ep endpoint, in, out any) error {
	ctx, span := c.tracer.Start(ctx, "billapi."+ep.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", ep.method),
			attribute.String("url.path", ep.path),
		),
	)
	defer span.End()

	logger := logging.FromContext(ctx)
	start := time.Now()

	status, err := c.roundTrip(ctx, ep, in, out)
	duration := time.Since(start)

	c.metrics.ObserveAPI(ep.op, status, duration)
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("API call failed",
			"op", ep.op,
			"method", ep.method,
			"path", ep.path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	logger.Debug("API call ok",
		"op", ep.op,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, ep endpoint, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s request: %w", ep.action, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, c.baseURL+ep.path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build %s request: %w", ep.action, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.GetRequestID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", ep.action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, &RequestError{
			Action:     ep.action,
			Method:     ep.method,
			Path:       ep.path,
			StatusCode: resp.StatusCode,
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", ep.action, err)
	}
	return resp.StatusCode, nil
}
