package handler

import (
	"net/http"

	"mme/internal/core"
	"mme/internal/dto"
	"mme/internal/pkg/response"
	"mme/internal/service"
	"mme/internal/telemetry"
	"mme/utils/validate"

	"github.com/gin-gonic/gin"
)

type ProxyConfigHandler struct {
	trace              *telemetry.Trace
	proxyConfigService *service.ProxyConfigService
}

func NewProxyConfigHandler(trace *telemetry.Trace, proxyConfigService *service.ProxyConfigService) *ProxyConfigHandler {
	return &ProxyConfigHandler{trace: trace, proxyConfigService: proxyConfigService}
}

// List returns every proxy config with the upstream key masked.
func (h *ProxyConfigHandler) List(c *gin.Context) {
	ctx, span, end := h.trace.WithSpan(c)
	defer end(nil)

	configs, err := h.proxyConfigService.List(ctx)
	if err != nil {
		end(err)
		response.AbortWithError(c, err)
		return
	}
	h.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "list", Count: len(configs)})
	response.Success(c, configs)
}

func (h *ProxyConfigHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	id, cause, err := validate.ParseObjectID(c, "id")
	if err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	proxyConfig, err := h.proxyConfigService.Get(ctx, id)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, proxyConfig)
}

func (h *ProxyConfigHandler) Create(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.CreateProxyConfigDto
	if cause, err := validate.BindAndValidate(c, &req); err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	proxyConfig, err := h.proxyConfigService.Create(ctx, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusCreated)
	response.Create(c, proxyConfig)
}

// Update replaces every field except the bearer token.
func (h *ProxyConfigHandler) Update(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	id, cause, err := validate.ParseObjectID(c, "id")
	if err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	var req dto.UpdateProxyConfigDto
	if cause, err := validate.BindAndValidate(c, &req); err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	proxyConfig, err := h.proxyConfigService.Update(ctx, id, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, proxyConfig)
}

func (h *ProxyConfigHandler) Delete(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	id, cause, err := validate.ParseObjectID(c, "id")
	if err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	if err := h.proxyConfigService.Delete(ctx, id); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Delete Success"})
}

func (h *ProxyConfigHandler) Toggle(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	id, cause, err := validate.ParseObjectID(c, "id")
	if err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	proxyConfig, err := h.proxyConfigService.Toggle(ctx, id)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, proxyConfig)
}

func (h *ProxyConfigHandler) RefreshToken(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	id, cause, err := validate.ParseObjectID(c, "id")
	if err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	token, err := h.proxyConfigService.RefreshBearerToken(ctx, id)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, token)
}
