//go:build wireinject
// +build wireinject

package di

import (
	"TrendPulse/pkg/config"
	"TrendPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePgxPool,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Stores
		ProvideBus,
		ProvidePostgres,
		ProvideItemStore,
		ProvideActivityStore,
		ProvideFlashStore,
		ProvideTrendStore,
		ProvideNotificationPublisher,
		ProvideResultsCache,

		// Ledger and inference
		ProvideResilientCache,
		ProvideLedger,
		ProvideLedgerStream,
		ProvideBreaker,
		ProvideInferenceClient,
		ProvideCollector,
		ProvideScorer,

		// Use cases
		ProvideOrchestrator,
		ProvideSpikeDetector,
		ProvideFlashLifecycle,
		ProvideEventProcessor,
		ProvideEventCollector,
		ProvideEngagementHandler,

		// HTTP and application
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
