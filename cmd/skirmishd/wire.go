//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/cory-johannsen/skirmish/internal/config"
)

var storeSet = wire.NewSet(
	provideOutcomes,
)

var engineSet = wire.NewSet(
	provideRoller,
	provideRegistry,
	provideDecisions,
	provideSessions,
	provideNATS,
	provideBroadcaster,
	provideEncounters,
)

var transportSet = wire.NewSet(
	provideGRPCServer,
	provideHTTPServer,
)

func initApp(ctx context.Context, cfg config.Config) (*App, func(), error) {
	wire.Build(
		provideLogger,
		provideTracerProvider,
		storeSet,
		engineSet,
		transportSet,
		newApp,
	)
	return nil, nil, nil
}
