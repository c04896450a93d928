// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/marketlive/business/market/app"
	"github.com/fd1az/marketlive/business/market/infra/api"
	"github.com/fd1az/marketlive/internal/di"
)

// Public service tokens - exposed to other modules
var (
	MarketService = di.NewToken[*app.MarketService]("market.MarketService")
)

// Private dependency tokens - internal to market module
var (
	APIClient         = di.NewToken[*api.Client]("market:apiClient")
	Dialer            = di.NewToken[app.Dialer]("market:dialer")
	Presenter         = di.NewToken[Presentation]("market:presenter")
	Reconciler        = di.NewToken[*app.Reconciler]("market:reconciler")
	ConnectionManager = di.NewToken[*app.ConnectionManager]("market:connectionManager")
	OfferSubmitter    = di.NewToken[*app.OfferSubmitter]("market:offerSubmitter")
	ItemQueryClient   = di.NewToken[*app.ItemQueryClient]("market:itemQueryClient")
)

// Presentation is the output side of the view: snapshots and the status
// indicator.
type Presentation interface {
	app.Renderer
	app.StatusIndicator
}

// Helper functions for type-safe access
func GetMarketService(c di.ServiceRegistry) *app.MarketService {
	return di.GetToken(c, MarketService)
}

func GetAPIClient(c di.ServiceRegistry) *api.Client {
	return di.GetToken(c, APIClient)
}

func GetDialer(c di.ServiceRegistry) app.Dialer {
	return di.GetToken(c, Dialer)
}

func GetPresenter(c di.ServiceRegistry) Presentation {
	return di.GetToken(c, Presenter)
}

func GetReconciler(c di.ServiceRegistry) *app.Reconciler {
	return di.GetToken(c, Reconciler)
}

func GetConnectionManager(c di.ServiceRegistry) *app.ConnectionManager {
	return di.GetToken(c, ConnectionManager)
}

func GetOfferSubmitter(c di.ServiceRegistry) *app.OfferSubmitter {
	return di.GetToken(c, OfferSubmitter)
}

func GetItemQueryClient(c di.ServiceRegistry) *app.ItemQueryClient {
	return di.GetToken(c, ItemQueryClient)
}
