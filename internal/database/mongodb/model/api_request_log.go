package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApiRequestLog is one audited proxy exchange. It is written once and never
// updated.
type ApiRequestLog struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RequestID          string              `json:"requestId" bson:"requestId"`
	ProxyConfigID      *primitive.ObjectID `json:"proxyConfigId" bson:"proxyConfigId"`
	ProxyName          string              `json:"proxyName,omitempty" bson:"proxyName,omitempty"`
	Model              string              `json:"model,omitempty" bson:"model,omitempty"`
	RequestPath        string              `json:"requestPath" bson:"requestPath"`
	Method             string              `json:"method" bson:"method"`
	RequestHeaders     map[string]string   `json:"requestHeaders" bson:"requestHeaders"`
	RequestBody        string              `json:"requestBody,omitempty" bson:"requestBody,omitempty"`
	ResponseStatusCode int                 `json:"responseStatusCode" bson:"responseStatusCode"`
	ResponseHeaders    map[string]string   `json:"responseHeaders,omitempty" bson:"responseHeaders,omitempty"`
	ResponseBody       string              `json:"responseBody,omitempty" bson:"responseBody,omitempty"`
	Streaming          bool                `json:"streaming" bson:"streaming"`
	Truncated          bool                `json:"truncated" bson:"truncated"`
	TargetURL          string              `json:"targetUrl,omitempty" bson:"targetUrl,omitempty"`
	RequestTime        time.Time           `json:"requestTime" bson:"requestTime"`
	ResponseTime       *time.Time          `json:"responseTime" bson:"responseTime"`
	DurationMs         int64               `json:"durationMs" bson:"durationMs"`
	ErrorMessage       string              `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	ClientIP           string              `json:"clientIp,omitempty" bson:"clientIp,omitempty"`
	UserAgent          string              `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	TokenUsage         string              `json:"tokenUsage,omitempty" bson:"tokenUsage,omitempty"`
}
