package router

import (
	"mme/internal/handler"
	"mme/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AdminRouter struct {
	authHandler        *handler.AuthHandler
	proxyConfigHandler *handler.ProxyConfigHandler
	requestLogHandler  *handler.RequestLogHandler
	adminAuth          *middleware.AdminAuth
}

func NewAdminRouter(
	authHandler *handler.AuthHandler,
	proxyConfigHandler *handler.ProxyConfigHandler,
	requestLogHandler *handler.RequestLogHandler,
	adminAuth *middleware.AdminAuth,
) *AdminRouter {
	return &AdminRouter{
		authHandler:        authHandler,
		proxyConfigHandler: proxyConfigHandler,
		requestLogHandler:  requestLogHandler,
		adminAuth:          adminAuth,
	}
}

func (ar *AdminRouter) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/auth/login", ar.authHandler.Login)

	proxy := api.Group("/proxy", ar.adminAuth.Handler())
	configs := proxy.Group("/configs")
	{
		configs.GET("", ar.proxyConfigHandler.List)
		configs.GET("/:id", ar.proxyConfigHandler.Get)
		configs.POST("", ar.proxyConfigHandler.Create)
		configs.PUT("/:id", ar.proxyConfigHandler.Update)
		configs.DELETE("/:id", ar.proxyConfigHandler.Delete)
		configs.PATCH("/:id/toggle", ar.proxyConfigHandler.Toggle)
		configs.POST("/:id/refresh-token", ar.proxyConfigHandler.RefreshToken)
	}
	logs := proxy.Group("/logs")
	{
		logs.GET("", ar.requestLogHandler.Search)
		logs.GET("/recent", ar.requestLogHandler.Recent)
		logs.GET("/models", ar.requestLogHandler.Models)
		logs.GET("/:requestId", ar.requestLogHandler.Get)
	}
}
