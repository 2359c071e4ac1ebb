package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	maxLoggedBody   = 300
	maxErrorBodyLen = 64 << 10
)

// Config configures a Client for one upstream API.
type Config struct {
	// Provider is the slug used in logs, metrics and spans.
	Provider string
	BaseURL  string
	// MessageFields lists body fields that may carry a readable error. Defaults to "message".
	MessageFields []string

	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.ProviderMetrics
	Tracer     trace.Tracer
}

// Client sends JSON requests to one upstream base URL and normalizes failures
// into *telemedicine.RequestError.
type Client struct {
	provider      string
	baseURL       *url.URL
	messageFields []string
	httpClient    *http.Client
	logger        *logging.Logger
	metrics       *metrics.ProviderMetrics
	tracer        trace.Tracer
}

// AuthFunc decorates an outgoing request with credentials.
type AuthFunc func(*http.Request)

// BearerAuth sets Authorization: Bearer token.
func BearerAuth(token string) AuthFunc {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

// HeaderAuth sets a vendor specific header.
func HeaderAuth(name, token string) AuthFunc {
	return func(r *http.Request) { r.Header.Set(name, token) }
}

// Request describes one upstream call.
type Request struct {
	// Operation labels metrics and spans, e.g. "get_doctors".
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Auth      AuthFunc
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("upstream: Provider is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream: BaseURL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("telemedicine.internal.upstream")
	}
	fields := cfg.MessageFields
	if len(fields) == 0 {
		fields = []string{"message"}
	}

	return &Client{
		provider:      cfg.Provider,
		baseURL:       base,
		messageFields: fields,
		httpClient:    httpClient,
		logger:        logger,
		metrics:       cfg.Metrics,
		tracer:        tracer,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do executes req and returns the raw 2xx body.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	endpoint, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "upstream."+req.Operation, trace.WithAttributes(
		attribute.String("telemedicine.provider", c.provider),
		attribute.String("http.method", method),
		attribute.String("http.path", req.Path),
	))
	defer span.End()

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("upstream: %s: encode request: %w", c.provider, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s: build request: %w", c.provider, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Auth != nil {
		req.Auth(httpReq)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream(c.provider, req.Operation, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return nil, &telemedicine.RequestError{
			Method:  method,
			URL:     endpoint,
			Message: telemedicine.UnexpectedErrorMessage,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	c.metrics.ObserveUpstream(c.provider, req.Operation, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		reqErr := &telemedicine.RequestError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Message:    telemedicine.RequestErrorMessage(c.extractMessage(raw)),
			Body:       raw,
		}
		span.RecordError(reqErr)
		span.SetStatus(codes.Error, reqErr.Message)
		c.logger.Warn("telemedicine upstream non-2xx response",
			"provider", c.provider,
			"operation", req.Operation,
			"status", resp.StatusCode,
			"path", req.Path,
			"body", truncate(raw, maxLoggedBody),
		)
		return nil, reqErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, &telemedicine.RequestError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Message:    telemedicine.UnexpectedErrorMessage,
			Err:        err,
		}
	}
	return raw, nil
}

// DoJSON executes req and decodes a JSON body into out. Empty bodies leave out untouched.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	raw, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return Decode(c.provider, raw, out)
}

// Decode unmarshals raw into out, tolerating empty bodies.
func Decode(provider string, raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("upstream: %s: decode response: %w", provider, err)
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	rel, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("upstream: %s: invalid path %q: %w", c.provider, path, err)
	}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) extractMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, field := range c.messageFields {
		if msg, ok := body[field].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

func truncate(raw []byte, n int) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
