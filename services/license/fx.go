package license

import (
	"pos-licensing/pkg/config"
	"pos-licensing/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("license.module",
	fx.Provide(NewService, NewHandler, NewSweeper),
)

var ServerModule = fx.Module("license.server",
	Module,
	fx.Invoke(
		registerRoutes,
		StartSweeper,
	),
)

// WorkerModule wires the asynq handlers consumed by cmd/worker.
var WorkerModule = fx.Module("license.worker",
	fx.Provide(NewTaskHandler),
	fx.Invoke(RegisterHandlers),
)

type routeParams struct {
	fx.In

	Engine   *gin.Engine
	Config   *config.Config
	Handler  *Handler
	Sessions middleware.SessionChecker `optional:"true"`
}

func registerRoutes(p routeParams) {
	authed := p.Engine.Group("/v1/licenses",
		middleware.Authenticate(p.Config.Session.Secret, p.Sessions),
	)

	authed.GET("/:tenant_id", p.Handler.Status)

	admin := authed.Group("", middleware.RequireAdmin())
	admin.POST("", p.Handler.Issue)
	admin.POST("/:tenant_id/renew", p.Handler.Renew)
	admin.GET("", p.Handler.List)
}
