// Package httpclient provides a JSON HTTP client instrumented with OTEL
// tracing and metrics.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute
	defaultMaxBodyBytes    = 1 << 20

	metricRequestCounter  = "http_client_requests_total"
	metricRequestDuration = "http_client_request_duration_ms"

	// HeaderRequestID correlates client requests with server logs.
	HeaderRequestID = "X-Request-ID"
)

// TraceOption selects which bodies are attached to spans.
type TraceOption string

const (
	TraceRequest  TraceOption = "request"
	TraceResponse TraceOption = "response"
)

// Client builds requests against a single base URL.
type Client interface {
	NewRequestWithOptions(opts ...RequestOption) Request
}

type options struct {
	meterProvider  metric.MeterProvider
	providerName   string
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	logRequest     bool
	logResponse    bool
	tracer         trace.Tracer
	requestID      func() string
	maxBodyBytes   int64
}

// ClientOption configures the client.
type ClientOption func(*options)

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *options) { o.meterProvider = mp }
}

// WithProviderName tags metrics and spans with the remote service name.
func WithProviderName(name string) ClientOption {
	return func(o *options) { o.providerName = name }
}

func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *options) { o.requestTimeout = timeout }
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *options) { o.headers = headers }
}

func WithBaseURL(url string) ClientOption {
	return func(o *options) { o.baseURL = url }
}

// WithRequestID sets a generator whose value is sent as the X-Request-ID
// header on every request.
func WithRequestID(gen func() string) ClientOption {
	return func(o *options) { o.requestID = gen }
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithTraceOptions sets the tracer and which bodies are recorded as span
// events.
func WithTraceOptions(tracer trace.Tracer, opts ...TraceOption) ClientOption {
	return func(o *options) {
		o.tracer = tracer
		for _, opt := range opts {
			switch opt {
			case TraceRequest:
				o.logRequest = true
			case TraceResponse:
				o.logResponse = true
			}
		}
	}
}

// InstrumentedClient wraps http.Client with OTEL instrumentation.
type InstrumentedClient struct {
	client          *http.Client
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	opts            options
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	o := options{
		providerName:   "default",
		requestTimeout: defaultRequestTimeout,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		MaxConnsPerHost: defaultMaxConnsPerHost,
		IdleConnTimeout: defaultIdleConnTimeout,
	}

	httpClient := &http.Client{
		Timeout: o.requestTimeout,
		Transport: otelhttp.NewTransport(
			transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}

	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider().Tracer("instrumented_http_client")
	}

	meter := o.meterProvider.Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", o.providerName)),
	)

	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{
		client:          httpClient,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		opts:            o,
	}, nil
}

// NewRequestWithOptions starts a request carrying the default headers and a
// fresh request id.
func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	reqOpts := &RequestOptions{}
	for _, o := range opts {
		o(reqOpts)
	}

	headers := make(map[string]string, len(c.opts.headers)+1)
	for k, v := range c.opts.headers {
		headers[k] = v
	}
	if c.opts.requestID != nil {
		headers[HeaderRequestID] = c.opts.requestID()
	}

	return &requestBuilder{
		c:       c,
		headers: headers,
		labels:  reqOpts.labels,
	}
}
