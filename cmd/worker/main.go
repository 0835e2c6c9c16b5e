package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"pos-licensing/pkg/config"
	"pos-licensing/pkg/logger"
	"pos-licensing/pkg/redis"
	"pos-licensing/pkg/task"
	"pos-licensing/services/auth"
	"pos-licensing/services/license"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		redis.Module,
		task.Server,
		fx.Provide(
			auth.NewSessionStore,
			provideSessionRevoker,
		),
		license.WorkerModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSessionRevoker(store *auth.SessionStore) license.SessionRevoker {
	return store
}
