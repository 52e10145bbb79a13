//go:build wireinject
// +build wireinject

package di

import (
	"FinEvent/pkg/config"
	"FinEvent/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideStore,
		ProvideBarPublisher,

		// Engines and use cases
		ProvideNormalizer,
		ProvideEngines,
		ProvideAnalysis,
		ProvideBarsUseCase,
		ProvideEventsUseCase,
		ProvideBarProcessor,
		ProvideTradeCollector,
		ProvideKafkaConsumer,
		ProvideRefreshUseCase,
		ProvideQueue,
		ProvideRefreshScheduler,

		// Transport
		ProvideHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
