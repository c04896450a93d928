// Package api implements the marketplace REST endpoints used by the client.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/marketlive/business/market/app"
	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/apperror"
	"github.com/fd1az/marketlive/internal/circuitbreaker"
	"github.com/fd1az/marketlive/internal/httpclient"
	"github.com/fd1az/marketlive/internal/logger"
	"github.com/fd1az/marketlive/internal/ratelimit"
)

const (
	tracerName = "market.api"

	itemsEndpoint        = "/api/items"
	offersEndpoint       = "/api/offers"
	offersByItemEndpoint = "/api/offers/item"

	defaultTimeout = 10 * time.Second
)

// Config holds REST client settings.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	RequestsPerMinute  int
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Client talks to the marketplace server. Calls are rate limited and
// guarded by a circuit breaker that trips on transport errors and 5xx
// responses only.
type Client struct {
	http    httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*httpclient.Response]
	config  Config
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

var (
	_ app.OfferAPI = (*Client)(nil)
	_ app.ItemAPI  = (*Client)(nil)
)

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("server base url"))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 600
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("marketplace"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithRequestID(uuid.NewString),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("marketplace-api")
	if cfg.BreakerMaxFailures > 0 {
		cbCfg.MaxFailures = cfg.BreakerMaxFailures
	}
	if cfg.BreakerTimeout > 0 {
		cbCfg.Timeout = cfg.BreakerTimeout
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		http:    client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		cb:      circuitbreaker.New[*httpclient.Response](cbCfg),
		config:  cfg,
		logger:  log,
		tracer:  tracer,
	}, nil
}

// BreakerState returns the circuit breaker state, for health reporting.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

// serverError marks a 5xx response so the breaker counts it as a failure.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server returned HTTP %d", e.status)
}

// do rate-limits and executes req through the breaker. On a 5xx response
// both the response and an error are returned.
func (c *Client) do(ctx context.Context, req httpclient.Request, method, path string) (*httpclient.Response, error) {
	waited, err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if waited > time.Second {
		c.logger.Debug(ctx, "request throttled", "path", path, "waited", waited.String())
	}

	return c.cb.Execute(func() (*httpclient.Response, error) {
		var (
			resp *httpclient.Response
			err  error
		)
		if method == http.MethodPost {
			resp, err = req.Post(ctx, path)
		} else {
			resp, err = req.Get(ctx, path)
		}
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{status: resp.StatusCode}
		}
		return resp, nil
	})
}

func (c *Client) newRequest(endpoint string) httpclient.Request {
	return c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
	)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Message string `json:"message"`
}

func messageOf(resp *httpclient.Response) string {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

type offerPayload struct {
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	ID     string      `json:"id"`
	Amount json.Number `json:"amount"`
}

// SubmitOffer posts an offer. A non-2xx response is returned as an
// unsuccessful OfferResult carrying the server message; only transport
// failures and undecodable success bodies are errors.
func (c *Client) SubmitOffer(ctx context.Context, req domain.OfferRequest) (domain.OfferResult, error) {
	ctx, span := c.tracer.Start(ctx, "api.submit_offer",
		trace.WithAttributes(attribute.String("item.id", req.ItemID)),
	)
	defer span.End()

	payload := offerPayload{
		Name:   req.Name,
		Email:  req.Email,
		ID:     req.ItemID,
		Amount: json.Number(req.Amount.String()),
	}

	var result domain.OfferResult
	resp, err := c.do(ctx, c.newRequest("offers").SetBody(payload).SetResult(&result), http.MethodPost, offersEndpoint)
	if resp == nil {
		span.RecordError(err)
		return domain.OfferResult{}, apperror.New(apperror.CodeOfferSubmitFailed,
			apperror.WithCause(err),
			apperror.WithSpan(ctx))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.IsError() {
		c.logger.Debug(ctx, "offer refused by server", "status", resp.StatusCode, "body", resp.String())
		return domain.OfferResult{Success: false, Message: messageOf(resp)}, nil
	}

	if resp.Result() == nil {
		return domain.OfferResult{}, apperror.New(apperror.CodeOfferSubmitFailed,
			apperror.WithContext("undecodable response"),
			apperror.WithStatusCode(resp.StatusCode),
			apperror.WithSpan(ctx))
	}
	return result, nil
}

// ListItems fetches the listing. Filter params are sent in q, minPrice,
// maxPrice order and only when non-empty.
func (c *Client) ListItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	ctx, span := c.tracer.Start(ctx, "api.list_items")
	defer span.End()

	var items []domain.Item
	req := c.newRequest("items").SetResult(&items)
	for _, p := range q.Params() {
		req.SetQueryParam(p.Key, p.Value)
	}

	resp, err := c.do(ctx, req, http.MethodGet, itemsEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithCause(err),
			apperror.WithSpan(ctx))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithStatusCode(resp.StatusCode),
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}
	if resp.Result() == nil {
		return nil, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithContext("undecodable response"))
	}

	if items == nil {
		items = []domain.Item{}
	}
	span.SetAttributes(attribute.Int("items.count", len(items)))
	return items, nil
}

type itemBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// GetItem fetches one item. A 404 yields CodeItemNotFound.
func (c *Client) GetItem(ctx context.Context, id string) (domain.ItemDetail, error) {
	ctx, span := c.tracer.Start(ctx, "api.get_item",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	var body itemBody
	resp, err := c.do(ctx, c.newRequest("item").SetResult(&body), http.MethodGet,
		itemsEndpoint+"/"+url.PathEscape(id))
	if err != nil {
		span.RecordError(err)
		return domain.ItemDetail{}, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithCause(err),
			apperror.WithContext(id))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ItemDetail{}, apperror.New(apperror.CodeItemNotFound, apperror.WithContext(id))
	case resp.IsError():
		return domain.ItemDetail{}, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithStatusCode(resp.StatusCode),
			apperror.WithContext(id))
	case resp.Result() == nil:
		return domain.ItemDetail{}, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithContext("undecodable response"))
	}

	if body.ID == "" {
		body.ID = id
	}
	return domain.ItemDetail{
		Item:        domain.Item{ID: body.ID, Name: body.Name, Price: body.Price},
		Description: body.Description,
	}, nil
}

type offerCountBody struct {
	ItemID string `json:"itemId"`
	Count  int    `json:"count"`
}

// CountOffers returns how many offers the item has received.
func (c *Client) CountOffers(ctx context.Context, itemID string) (int, error) {
	var body offerCountBody
	resp, err := c.do(ctx, c.newRequest("offers_by_item").SetResult(&body), http.MethodGet,
		offersByItemEndpoint+"/"+url.PathEscape(itemID))
	if err != nil {
		return 0, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithCause(err),
			apperror.WithContext(itemID))
	}
	if resp.IsError() || resp.Result() == nil {
		return 0, apperror.New(apperror.CodeItemQueryFailed,
			apperror.WithStatusCode(resp.StatusCode),
			apperror.WithContext(itemID))
	}
	return body.Count, nil
}
