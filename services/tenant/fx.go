package tenant

import (
	"pos-licensing/pkg/config"
	"pos-licensing/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.module",
	fx.Provide(NewService, NewHandler),
)

var ServerModule = fx.Module("tenant.server",
	Module,
	fx.Invoke(registerRoutes),
)

type routeParams struct {
	fx.In

	Engine   *gin.Engine
	Config   *config.Config
	Handler  *Handler
	Sessions middleware.SessionChecker `optional:"true"`
}

func registerRoutes(p routeParams) {
	group := p.Engine.Group("/v1/tenants",
		middleware.Authenticate(p.Config.Session.Secret, p.Sessions),
		middleware.RequireAdmin(),
	)
	group.POST("", p.Handler.Create)
}
