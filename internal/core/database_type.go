package core

import "go.mongodb.org/mongo-driver/bson"

type MongoCollection string
type RedisKey string
type FluentdSubTag string

// MongoDB collections
const (
	MongoCollectionProxyConfigs   MongoCollection = "proxy_configs"
	MongoCollectionApiRequestLogs MongoCollection = "api_request_logs"
)

// ─── Redis Keys ────────────────────────────────────────────────────────────────

const (
	RedisKeyServerName       RedisKey = "mme"
	RedisKeyProxyConfigToken RedisKey = "proxy_config:token"
)

const (
	FluentdApiRequestLog FluentdSubTag = "api_request_log"
)

type ListOptions struct {
	Filter bson.M `json:"filter,omitempty" bson:"filter,omitempty"`
	Page   int64  `json:"page,omitempty" bson:"page,omitempty"`
	Size   int64  `json:"size,omitempty" bson:"size,omitempty"`
}

// Skip returns the number of documents before the requested page (pages start at 1).
func (o ListOptions) Skip() int64 {
	if o.Page <= 1 {
		return 0
	}
	return (o.Page - 1) * o.Size
}
