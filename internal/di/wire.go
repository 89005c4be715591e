//go:build wireinject
// +build wireinject

package di

import (
	"CopyFlow/pkg/config"
	"CopyFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,
		ProvideTraceSinks,

		// Replication core
		ProvideConnFactory,
		ProvideJournal,
		ProvideEngine,

		// HTTP boundary
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
