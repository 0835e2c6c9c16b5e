// Seed bootstraps the first admin account so licenses can be issued. It is
// idempotent: re-running with an existing username is a no-op.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pos-licensing/pkg/config"
	"pos-licensing/pkg/db"
	"pos-licensing/pkg/errutil"
	"pos-licensing/pkg/logger"
	"pos-licensing/services/tenant"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		fx.Provide(
			provideSnowflakeNode,
			tenant.NewService,
		),
		fx.Invoke(autoMigrate, seedAdmin),
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
	return gdb.AutoMigrate(&tenant.Tenant{})
}

func seedAdmin(svc *tenant.Service, shutdowner fx.Shutdowner) {
	username := envOr("ADMIN_USERNAME", "admin")
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		zap.L().Fatal("ADMIN_PASSWORD is required")
	}

	created, err := svc.CreateTenant(context.Background(), &tenant.CreateTenantRequest{
		Username: username,
		Password: password,
		ShopName: envOr("ADMIN_SHOP_NAME", "Head Office"),
		Role:     tenant.Admin.String(),
	})

	var base errutil.BaseError
	switch {
	case err == nil:
		zap.L().Info("admin account created",
			zap.String("tenant_id", created.ID),
			zap.String("username", created.Username),
		)
	case errors.As(err, &base) && base.Code == errutil.StatusConflict:
		zap.L().Info("admin account already exists", zap.String("username", username))
	default:
		zap.L().Fatal("seed failed", zap.Error(err))
	}

	shutdowner.Shutdown()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
