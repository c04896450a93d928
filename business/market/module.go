// Package market implements the marketplace client bounded context: live
// prices, item queries and offers.
package market

import (
	"context"
	"fmt"

	"github.com/fd1az/marketlive/business/market/app"
	marketDI "github.com/fd1az/marketlive/business/market/di"
	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/business/market/infra/api"
	"github.com/fd1az/marketlive/business/market/infra/console"
	"github.com/fd1az/marketlive/business/market/infra/feed"
	"github.com/fd1az/marketlive/business/market/infra/tui"
	"github.com/fd1az/marketlive/internal/config"
	"github.com/fd1az/marketlive/internal/di"
	"github.com/fd1az/marketlive/internal/logger"
	"github.com/fd1az/marketlive/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// REST client for items and offers - private dependency
	di.RegisterToken(c, marketDI.APIClient, func(sr di.ServiceRegistry) *api.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := api.NewClient(api.Config{
			BaseURL:            cfg.Server.BaseURL,
			Timeout:            cfg.Server.RequestTimeout,
			RequestsPerMinute:  cfg.Server.RequestsPerMinute,
			BreakerMaxFailures: cfg.Server.BreakerMaxFails,
			BreakerTimeout:     cfg.Server.BreakerTimeout,
		}, log)
		if err != nil {
			panic("failed to create marketplace api client: " + err.Error())
		}
		return client
	})

	// Price stream dialer - private dependency
	di.RegisterToken(c, marketDI.Dialer, func(sr di.ServiceRegistry) app.Dialer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		streamURL, err := feed.StreamURL(cfg.Server.BaseURL, cfg.Feed.Path)
		if err != nil {
			panic("failed to derive price stream url: " + err.Error())
		}
		dialer, err := feed.NewDialer(feed.Config{
			URL:          streamURL,
			DialTimeout:  cfg.Feed.DialTimeout,
			ReadLimit:    cfg.Feed.ReadLimit,
			PingInterval: cfg.Feed.PingInterval,
		}, log)
		if err != nil {
			panic("failed to create price stream dialer: " + err.Error())
		}
		log.Debug(context.Background(), "price stream configured", "url", dialer.URL())
		return dialer
	})

	// Output adapter: Bubble Tea in TUI mode, stdout otherwise
	di.RegisterToken(c, marketDI.Presenter, func(sr di.ServiceRegistry) marketDI.Presentation {
		cfg := sr.Get("config").(*config.Config)
		if cfg.App.TUIMode {
			return tui.NewPresenter()
		}
		return console.NewPresenter()
	})

	di.RegisterToken(c, marketDI.Reconciler, func(sr di.ServiceRegistry) *app.Reconciler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewReconciler(marketDI.GetPresenter(sr), app.ViewConfig{
			HighlightDuration:      cfg.View.HighlightDuration,
			OfferHighlightDuration: cfg.View.OfferHighlightDuration,
			AlertDuration:          cfg.View.AlertDuration,
		}, log)
	})

	di.RegisterToken(c, marketDI.ConnectionManager, func(sr di.ServiceRegistry) *app.ConnectionManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		manager, err := app.NewConnectionManager(
			marketDI.GetDialer(sr),
			app.StatusIndicators{marketDI.GetPresenter(sr), statusLog{log}},
			marketDI.GetReconciler(sr),
			app.ConnectionConfig{
				ReconnectDelay: cfg.Feed.ReconnectDelay,
				DialTimeout:    cfg.Feed.DialTimeout,
			},
			log,
		)
		if err != nil {
			panic("failed to create connection manager: " + err.Error())
		}
		return manager
	})

	di.RegisterToken(c, marketDI.OfferSubmitter, func(sr di.ServiceRegistry) *app.OfferSubmitter {
		log := sr.Get("logger").(logger.LoggerInterface)

		submitter, err := app.NewOfferSubmitter(marketDI.GetAPIClient(sr), marketDI.GetReconciler(sr), log)
		if err != nil {
			panic("failed to create offer submitter: " + err.Error())
		}
		return submitter
	})

	di.RegisterToken(c, marketDI.ItemQueryClient, func(sr di.ServiceRegistry) *app.ItemQueryClient {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewItemQueryClient(marketDI.GetAPIClient(sr), marketDI.GetReconciler(sr), log)
	})

	// Register MarketService (public - driven by the presentation layer)
	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.MarketService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewMarketService(
			marketDI.GetConnectionManager(sr),
			marketDI.GetReconciler(sr),
			marketDI.GetOfferSubmitter(sr),
			marketDI.GetItemQueryClient(sr),
			log,
		)
	})

	return nil
}

// statusLog records price feed transitions in the application log.
type statusLog struct {
	log logger.LoggerInterface
}

func (s statusLog) SetConnected(ctx context.Context, connected bool) {
	if connected {
		s.log.Info(ctx, "price feed connected")
		return
	}
	s.log.Warn(ctx, "price feed disconnected")
}

// Startup opens the price stream, loads the listing and registers health
// checks. A server that is down does not fail startup: the stream keeps
// retrying and the listing shows its load-error placeholder.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := marketDI.GetMarketService(mono.Services())

	if hs := mono.Health(); hs != nil {
		manager := marketDI.GetConnectionManager(mono.Services())
		client := marketDI.GetAPIClient(mono.Services())

		hs.RegisterCheck("price_feed", func(context.Context) (bool, string) {
			state := manager.State()
			return state == domain.StateOpen, state.String()
		})
		hs.RegisterCheck("marketplace_api", func(context.Context) (bool, string) {
			state := client.BreakerState()
			return state != "open", "circuit " + state
		})
	}

	mono.OnShutdown(svc.Stop)

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start market service: %w", err)
	}

	log.Info(ctx, "market module started", "server", mono.Config().Server.BaseURL)
	return nil
}
