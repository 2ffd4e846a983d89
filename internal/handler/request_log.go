package handler

import (
	"mme/internal/dto"
	cErr "mme/internal/pkg/error"
	"mme/internal/pkg/response"
	"mme/internal/service"
	"mme/internal/telemetry"
	"mme/utils/validate"

	"github.com/gin-gonic/gin"
)

type RequestLogHandler struct {
	trace             *telemetry.Trace
	requestLogService *service.RequestLogService
}

func NewRequestLogHandler(trace *telemetry.Trace, requestLogService *service.RequestLogService) *RequestLogHandler {
	return &RequestLogHandler{trace: trace, requestLogService: requestLogService}
}

// Search pages through audit logs, newest first.
func (h *RequestLogHandler) Search(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var query dto.RequestLogQueryDto
	if cause, err := validate.BindQuery(c, &query); err != nil {
		end(cause)
		response.AbortWithError(c, err)
		return
	}
	page, err := h.requestLogService.Search(ctx, &query)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, page)
}

func (h *RequestLogHandler) Recent(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	count, err := validate.GetInt64Query(c, "count", 100)
	if err != nil {
		end(err)
		response.AbortWithError(c, cErr.ValidatePathParamsErr("count must be an integer"))
		return
	}
	logs, err := h.requestLogService.Recent(ctx, count)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, logs)
}

func (h *RequestLogHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	requestLog, err := h.requestLogService.GetByRequestID(ctx, c.Param("requestId"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, requestLog)
}

func (h *RequestLogHandler) Models(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	models, err := h.requestLogService.DistinctModels(ctx)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, models)
}
