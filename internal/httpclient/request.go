package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)

	// SetBody sets a value sent JSON encoded.
	SetBody(body any) Request
	SetHeader(key, value string) Request
	// SetQueryParam appends key=value; parameters keep insertion order.
	SetQueryParam(key, value string) Request
	// SetResult sets where a JSON response body is decoded. Decoding
	// failures leave Response.Result nil.
	SetResult(result any) Request
}

// Response is a fully read http.Response.
type Response struct {
	*http.Response
	body   []byte
	result any
}

func (r *Response) Body() []byte {
	return r.body
}

func (r *Response) String() string {
	return string(r.body)
}

// IsError reports a status of 400 or above.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Result returns the decoded body, or nil if nothing was decoded.
func (r *Response) Result() any {
	return r.result
}

// RequestOptions holds per-request configuration.
type RequestOptions struct {
	labels []*Label
}

// RequestOption configures a single request.
type RequestOption func(*RequestOptions)

// Label is a key-value pair for metrics or query parameters.
type Label struct {
	Key   string
	Value string
}

func NewLabel(key, value string) *Label {
	return &Label{Key: key, Value: value}
}

// WithLabels adds metric attributes to the request.
func WithLabels(labels ...*Label) RequestOption {
	return func(o *RequestOptions) {
		o.labels = labels
	}
}

// EncodeQuery renders params as a query string in the given order.
func EncodeQuery(params []*Label) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

type requestBuilder struct {
	c           *InstrumentedClient
	headers     map[string]string
	queryParams []*Label
	body        any
	result      any
	labels      []*Label
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

func (r *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, path)
}

func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	r.queryParams = append(r.queryParams, NewLabel(key, value))
	return r
}

func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) url(path string) string {
	full := path
	if base := r.c.opts.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.queryParams) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + EncodeQuery(r.queryParams)
	}
	return full
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	opts := r.c.opts
	ctx, span := opts.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("provider", opts.providerName),
		),
	)
	defer span.End()

	fullURL := r.url(path)
	span.SetAttributes(attribute.String("http.url", fullURL))

	var bodyReader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to marshal body")
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		if opts.logRequest {
			span.AddEvent("request.body", trace.WithAttributes(
				attribute.String("http.request_body", string(payload)),
			))
		}
		bodyReader = bytes.NewReader(payload)
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if id := r.headers[HeaderRequestID]; id != "" {
		span.SetAttributes(attribute.String("http.request_id", id))
	}

	start := time.Now()
	resp, err := r.c.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, err)
		r.recordMetrics(ctx, start, 0)
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.maxBodyBytes))
	resp.Body.Close()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read body")
		r.recordMetrics(ctx, start, resp.StatusCode)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	r.recordMetrics(ctx, start, resp.StatusCode)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if opts.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body)),
		))
	}
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, resp.Status)
	}

	response := &Response{Response: resp, body: body}
	if r.result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
		} else {
			response.result = r.result
		}
	}

	return response, nil
}

// recordError annotates the span with the failure kind.
func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
}

// recordMetrics counts the request and its latency. status 0 means no
// response was received.
func (r *requestBuilder) recordMetrics(ctx context.Context, start time.Time, status int) {
	class := "error"
	if status > 0 {
		class = strconv.Itoa(status/100) + "xx"
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.c.opts.providerName),
		attribute.String("status_class", class),
	}
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	set := metric.WithAttributes(attrs...)
	r.c.requestCounter.Add(ctx, 1, set)
	r.c.requestDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, set)
}
