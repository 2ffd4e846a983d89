package router

import (
	"mme/config"
	"mme/internal/handler"

	"github.com/gin-gonic/gin"
)

type ProxyRouter struct {
	prefix       string
	proxyHandler *handler.ProxyHandler
}

func NewProxyRouter(config *config.Configuration, proxyHandler *handler.ProxyHandler) *ProxyRouter {
	return &ProxyRouter{prefix: config.Proxy.Prefix, proxyHandler: proxyHandler}
}

// RegisterRoutes mounts the gateway for every method under the prefix.
func (proxyRouter *ProxyRouter) RegisterRoutes(engine *gin.Engine) {
	engine.Any(proxyRouter.prefix+"/*path", proxyRouter.proxyHandler.Handle)
}
