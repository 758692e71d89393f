package app

import (
	"github.com/gin-gonic/gin"
	"github.com/thekandidedit/core/internal/middleware"
	"github.com/thekandidedit/core/internal/modules/auth"
	"github.com/thekandidedit/core/internal/modules/health"
	"github.com/thekandidedit/core/internal/modules/post"
	"github.com/thekandidedit/core/internal/modules/subscriber"
	"github.com/thekandidedit/core/internal/pkg/emailtoken"
	"github.com/thekandidedit/core/internal/pkg/mail"
	"github.com/thekandidedit/core/internal/pkg/metrics"
	"github.com/thekandidedit/core/internal/pkg/response"
)

func (a *App) registerRoutes(sender *mail.Sender, codec *emailtoken.Codec) {
	a.router.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"pong": true})
	})
	a.router.GET("/metrics", metrics.Handler())

	a.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	authMW := middleware.Auth()

	api := a.router.Group("/api/v2")
	api.Use(middleware.RateLimit(a.rc.Raw()))
	api.Use(middleware.Idempotence(a.rc.Raw()))

	site := subscriber.Site{Name: a.cfg.SiteName(), BaseURL: a.cfg.BaseURL()}
	subSvc := subscriber.NewService(subscriber.NewStore(a.db), sender, codec, site, a.logger)
	subscriber.NewHandler(subSvc, a.cfg).RegisterRoutes(api, authMW)

	post.NewHandler(post.NewService(a.db)).RegisterRoutes(api, authMW)
	auth.NewHandler(auth.NewService(a.db)).RegisterRoutes(api, authMW)
	health.NewHandler(a.db, sender, a.cfg).RegisterRoutes(api)
}
