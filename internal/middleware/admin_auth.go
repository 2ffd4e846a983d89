package middleware

import (
	"mme/internal/core"
	cErr "mme/internal/pkg/error"
	"mme/internal/pkg/header"
	"mme/internal/pkg/response"
	"mme/internal/service"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AdminAuth guards the admin API with the session token issued by login.
type AdminAuth struct {
	logger      *zap.Logger
	trace       *telemetry.Trace
	authService *service.AuthService
}

func NewAdminAuth(logger *zap.Logger, trace *telemetry.Trace, authService *service.AuthService) *AdminAuth {
	return &AdminAuth{logger: logger, trace: trace, authService: authService}
}

func (m *AdminAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanAdminAuth))

		token, ok := header.BearerToken(c.Request.Header)
		if !ok {
			cause := cErr.Unauthorized("missing admin session token")
			span.SetAttributes(attribute.String("auth.status", "missing_token"))
			end(cause)
			response.AbortWithError(c, cause)
			return
		}
		claims, err := m.authService.ParseToken(token)
		if err != nil {
			span.SetAttributes(attribute.String("auth.status", "rejected"))
			end(err)
			m.logger.Warn("admin session rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			response.AbortWithError(c, err)
			return
		}
		span.SetAttributes(
			attribute.String("auth.status", "ok"),
			attribute.String("auth.username", claims.Username),
		)
		end(nil)

		c.Set(core.ContextAdminClaimsKey, claims)
		c.Next()
	}
}
