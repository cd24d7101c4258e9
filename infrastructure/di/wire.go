//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/application/services"
	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/cover"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTracer,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideS3Client,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideBookRepository,
	ProvideReadStatusRepository,
	ProvideObjectStore,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideCollector,
	ProvideOutcomeObserver,
	ProvideErrorHandler,
	ProvideCoverClient,
	ProvideAuthorFinder,
	ProvideSettings,
	ProvideLookupLimiter,
	wire.Bind(new(services.OutcomeObserver), new(*services.LoggingObserver)),
	wire.Bind(new(ports.CoverFinder), new(*cover.Client)),
	services.NewBookService,
	services.NewIngestService,
	services.NewMaintenanceService,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
