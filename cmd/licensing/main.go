package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pos-licensing/pkg/config"
	"pos-licensing/pkg/db"
	"pos-licensing/pkg/health"
	"pos-licensing/pkg/logger"
	"pos-licensing/pkg/redis"
	"pos-licensing/pkg/server"
	"pos-licensing/pkg/task"
	"pos-licensing/services/auth"
	"pos-licensing/services/license"
	"pos-licensing/services/tenant"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		health.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Invoke(
			autoMigrate,
			db.Otel,
		),
		tenant.ServerModule,
		auth.ServerModule,
		license.ServerModule,
		server.Module,
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

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func autoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&tenant.Tenant{},
		&license.License{},
		&license.SweepRun{},
	)
}
