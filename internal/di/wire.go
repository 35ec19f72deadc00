//go:build wireinject
// +build wireinject

package di

import (
	"SolPulse/pkg/config"
	"SolPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideStore,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Scoring and use cases
		ProvideEngine,
		ProvideRankings,
		ProvideTokens,
		ProvideNetwork,
		ProvideHub,
		ProvideSnapshotter,
		ProvideQueue,
		ProvideRefresher,
		ProvideScheduler,
		ProvideSamplesHandler,
		ProvideNetworkHandler,

		// HTTP
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
