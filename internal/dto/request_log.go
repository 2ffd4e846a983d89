package dto

import (
	"mme/internal/database/mongodb/model"
	"mme/internal/pkg/request"
)

// RequestLogQueryDto is bound from the query string of GET /api/proxy/logs.
type RequestLogQueryDto struct {
	ProxyConfigID string `form:"proxyConfigId" binding:"omitempty,mongodb"`
	Model         string `form:"model"`
	StatusCode    int    `form:"statusCode" binding:"omitempty,min=100,max=599"`
	From          string `form:"from"`
	To            string `form:"to"`
	PageIndex     int64  `form:"pageIndex" binding:"omitempty,min=1"`
	PageSize      int64  `form:"pageSize" binding:"omitempty,min=1,max=200"`
}

func (RequestLogQueryDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"ProxyConfigID.mongodb": "proxyConfigId must be an ObjectID",
		"StatusCode.min":        "statusCode must be a valid HTTP status",
		"StatusCode.max":        "statusCode must be a valid HTTP status",
		"PageIndex.min":         "pageIndex starts at 1",
		"PageSize.min":          "pageSize must be at least 1",
		"PageSize.max":          "pageSize must be at most 200",
	}
}

type RequestLogPageDto struct {
	List       []*model.ApiRequestLog `json:"list"`
	TotalCount int64                  `json:"totalCount"`
	PageIndex  int64                  `json:"pageIndex"`
	PageSize   int64                  `json:"pageSize"`
}

type PruneResultDto struct {
	Deleted int64 `json:"deleted"`
}
