//go:build wireinject
// +build wireinject

package main

import (
	"mme/config"
	"mme/internal/command"
	"mme/internal/cron"
	"mme/internal/database"
	"mme/internal/handler"
	"mme/internal/middleware"
	"mme/internal/router"
	"mme/internal/service"
	"mme/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			newHttpClient,
			telemetry.ProviderSet,
			newApp,
		),
	)
}

// wireCommand init application.
func wireCommand(*config.Configuration, *zap.Logger) (*command.Command, func(), error) {
	panic(wire.Build(
		database.ProviderSet,
		telemetry.ProviderSet,
		service.ProviderSet,
		command.ProviderSet,
	))
}
