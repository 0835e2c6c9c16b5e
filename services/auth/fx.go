package auth

import (
	"pos-licensing/pkg/config"
	"pos-licensing/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.module",
	fx.Provide(
		NewSessionStore,
		NewService,
		NewHandler,
		provideSessionChecker,
	),
)

var ServerModule = fx.Module("auth.server",
	Module,
	fx.Invoke(registerRoutes),
)

func provideSessionChecker(store *SessionStore) middleware.SessionChecker {
	return store
}

type routeParams struct {
	fx.In

	Engine   *gin.Engine
	Config   *config.Config
	Handler  *Handler
	Sessions middleware.SessionChecker
}

func registerRoutes(p routeParams) {
	group := p.Engine.Group("/v1/auth")
	group.POST("/login", p.Handler.Login)
	group.POST("/logout",
		middleware.Authenticate(p.Config.Session.Secret, p.Sessions),
		p.Handler.Logout,
	)
}
