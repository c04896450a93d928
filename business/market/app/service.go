package app

import (
	"context"
	"sync"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/logger"
)

// ServiceStats is the status line shown by the renderers.
type ServiceStats struct {
	State            domain.ConnectionState
	ReconnectPending bool
	OfferPending     bool
	Filter           domain.ItemQuery
	Connection       ConnectionStats
}

// MarketService is the single entry point the presentation layers drive.
// It owns no state of its own beyond the last applied filter.
type MarketService struct {
	conn   *ConnectionManager
	view   *Reconciler
	offers *OfferSubmitter
	items  *ItemQueryClient
	logger logger.LoggerInterface

	mu     sync.Mutex
	filter domain.ItemQuery
}

// NewMarketService ties the components together.
func NewMarketService(
	conn *ConnectionManager,
	view *Reconciler,
	offers *OfferSubmitter,
	items *ItemQueryClient,
	log logger.LoggerInterface,
) *MarketService {
	return &MarketService{
		conn:   conn,
		view:   view,
		offers: offers,
		items:  items,
		logger: log,
	}
}

// Start opens the price stream and loads the unfiltered listing. A failed
// initial load leaves the load-error placeholder on screen and is not fatal.
func (s *MarketService) Start(ctx context.Context) error {
	if err := s.conn.EnsureConnected(ctx); err != nil {
		return err
	}
	if err := s.items.Query(ctx, domain.ItemQuery{}); err != nil {
		s.logger.Warn(ctx, "initial item load failed", "error", err)
	}
	s.logger.Info(ctx, "market service started")
	return nil
}

// ApplyFilter replaces the listing with the items matching q.
func (s *MarketService) ApplyFilter(ctx context.Context, q domain.ItemQuery) error {
	s.mu.Lock()
	s.filter = q
	s.mu.Unlock()
	return s.items.Apply(ctx, q)
}

// ClearFilter reloads the unfiltered listing.
func (s *MarketService) ClearFilter(ctx context.Context) error {
	s.mu.Lock()
	s.filter = domain.ItemQuery{}
	s.mu.Unlock()
	return s.items.Clear(ctx)
}

// OpenItem loads an item into the detail view.
func (s *MarketService) OpenItem(ctx context.Context, id string) error {
	return s.items.LoadDetail(ctx, id)
}

func (s *MarketService) CloseItem(ctx context.Context) {
	s.view.CloseDetail(ctx)
}

func (s *MarketService) ToggleOfferForm(ctx context.Context) {
	s.view.ToggleOfferForm(ctx)
}

// SubmitOffer sends the form. Outcomes are already reflected in the view
// when it returns; the error is informational.
func (s *MarketService) SubmitOffer(ctx context.Context, form domain.OfferForm) error {
	_, err := s.offers.Submit(ctx, form)
	return err
}

func (s *MarketService) DismissAlert(ctx context.Context, id string) {
	s.view.DismissAlert(ctx, id)
}

// Reconnect drops the current stream, if any, and dials again right away.
func (s *MarketService) Reconnect(ctx context.Context) error {
	if s.conn.State().Live() {
		s.conn.Disconnect(ctx)
	}
	return s.conn.EnsureConnected(ctx)
}

// Snapshot returns the current view projection.
func (s *MarketService) Snapshot() Snapshot {
	return s.view.Snapshot()
}

// Stats reports connection and form state.
func (s *MarketService) Stats() ServiceStats {
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()

	return ServiceStats{
		State:            s.conn.State(),
		ReconnectPending: s.conn.ReconnectPending(),
		OfferPending:     s.offers.Pending(),
		Filter:           filter,
		Connection:       s.conn.Stats(),
	}
}

// Stop closes the stream for good and cancels pending view timers.
func (s *MarketService) Stop() error {
	err := s.conn.Close()
	s.view.Close()
	s.logger.Info(context.Background(), "market service stopped")
	return err
}
