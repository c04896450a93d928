package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/apperror"
	"github.com/fd1az/marketlive/internal/logger"
)

// ItemLoadErrorText is shown when an item detail cannot be fetched.
const ItemLoadErrorText = "Could not load the item."

// GridView receives listing and detail results.
type GridView interface {
	ReplaceGrid(ctx context.Context, items []domain.Item)
	ShowLoadError(ctx context.Context)
	OpenDetail(ctx context.Context, detail domain.ItemDetail)
	ShowAlert(ctx context.Context, kind AlertKind, text string) string
}

// ItemQueryClient fetches filtered listings and item details.
type ItemQueryClient struct {
	api    ItemAPI
	view   GridView
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewItemQueryClient creates an ItemQueryClient.
func NewItemQueryClient(api ItemAPI, view GridView, log logger.LoggerInterface) *ItemQueryClient {
	return &ItemQueryClient{
		api:    api,
		view:   view,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Query fetches the listing matching q and replaces the grid. On failure
// the grid shows the load-error placeholder and the error is returned.
func (c *ItemQueryClient) Query(ctx context.Context, q domain.ItemQuery) error {
	ctx, span := c.tracer.Start(ctx, "items.query",
		trace.WithAttributes(attribute.Int("items.params", len(q.Params()))),
	)
	defer span.End()

	items, err := c.api.ListItems(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		c.logger.Warn(ctx, "item query failed", "error", err)
		c.view.ShowLoadError(ctx)
		return err
	}

	span.SetAttributes(attribute.Int("items.count", len(items)))
	c.view.ReplaceGrid(ctx, items)
	return nil
}

// Apply runs the query built from the filter inputs.
func (c *ItemQueryClient) Apply(ctx context.Context, q domain.ItemQuery) error {
	return c.Query(ctx, q)
}

// Clear reloads the unfiltered listing.
func (c *ItemQueryClient) Clear(ctx context.Context) error {
	return c.Query(ctx, domain.ItemQuery{})
}

// LoadDetail fetches an item and its offer count concurrently and opens
// the detail view. A failed count is shown as zero.
func (c *ItemQueryClient) LoadDetail(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, "items.detail",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	var (
		detail domain.ItemDetail
		count  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = c.api.GetItem(gctx, id)
		return err
	})
	g.Go(func() error {
		n, err := c.api.CountOffers(gctx, id)
		if err != nil {
			c.logger.Warn(gctx, "offer count unavailable", "item_id", id, "error", err)
			return nil
		}
		count = n
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail failed")
		c.logger.Warn(ctx, "item detail failed", "item_id", id, "error", err)
		c.view.ShowAlert(ctx, AlertError, apperror.UserMessage(err, ItemLoadErrorText))
		return err
	}

	detail.OfferCount = count
	c.view.OpenDetail(ctx, detail)
	return nil
}
