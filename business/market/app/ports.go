// Package app contains application services and port definitions for the market context.
package app

import (
	"context"

	"github.com/fd1az/marketlive/business/market/domain"
)

// Transport is a live streaming connection.
type Transport interface {
	// Close tears the connection down. TransportHandlers.OnClose is not
	// invoked for closes initiated through this method.
	Close() error
}

// TransportHandlers receive the events of one connection.
type TransportHandlers struct {
	// OnMessage runs on the transport's read goroutine, one frame at a time.
	OnMessage func(ctx context.Context, data []byte)
	// OnClose is invoked at most once when the peer closes or the connection fails.
	OnClose func(err error)
}

// Dialer opens streaming connections. Dial returns once the handshake has
// completed or failed.
type Dialer interface {
	Dial(ctx context.Context, handlers TransportHandlers) (Transport, error)
}

// StatusIndicator renders the connected/disconnected state.
type StatusIndicator interface {
	SetConnected(ctx context.Context, connected bool)
}

// PriceUpdateApplier consumes decoded price updates.
type PriceUpdateApplier interface {
	ApplyPriceUpdate(ctx context.Context, itemID, newPrice string)
}

// Renderer presents projection snapshots.
type Renderer interface {
	Render(ctx context.Context, snap Snapshot)
}

// OfferAPI submits offers to the server.
type OfferAPI interface {
	// SubmitOffer returns the decoded server verdict. A transport failure
	// or undecodable response is returned as an error.
	SubmitOffer(ctx context.Context, req domain.OfferRequest) (domain.OfferResult, error)
}

// ItemAPI reads the item catalogue.
type ItemAPI interface {
	ListItems(ctx context.Context, query domain.ItemQuery) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (domain.ItemDetail, error)
	CountOffers(ctx context.Context, itemID string) (int, error)
}

// StatusIndicators fans one status change out to several indicators.
type StatusIndicators []StatusIndicator

func (s StatusIndicators) SetConnected(ctx context.Context, connected bool) {
	for _, ind := range s {
		ind.SetConnected(ctx, connected)
	}
}
