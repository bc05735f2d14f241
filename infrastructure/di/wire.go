//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"astraea-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet lists every provider in the graph. Container itself is filled by
// wire.Struct, so adding a field means adding a provider here.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideScoringConfig,
	ProvideOrchestrator,
	ProvideNatalService,
	ProvideSynastryService,
	ProvideCompositeService,
	ProvideCollector,
	ProvideCloudWatch,
	ProvideTracer,
	ProvideStorage,
	ProvideCache,
	ProvideEphemeris,
	ProvideHookManager,
	ProvideAnalysisService,
	ProvideGenerateHandler,
	ProvideBulkDeleteHandler,
	ProvidePurgeHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRateLimiter,
	ProvideErrorHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // replaced by wire
}
