package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mme/config"
	"mme/internal/core"
	client "mme/internal/database/client"
	"mme/internal/database/mongodb/model"
	"mme/internal/telemetry"
	"mme/utils/apikey"

	"github.com/redis/go-redis/v9"
)

// ProxyConfigCacheRepository caches bearer token lookups. Tokens are hashed
// before they become keys. Every method is a no-op when Redis is disabled.
type ProxyConfigCacheRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
	ttl    time.Duration
}

func NewProxyConfigCacheRepository(config *config.Configuration, trace *telemetry.Trace, redisClient *client.RedisClient) *ProxyConfigCacheRepository {
	repository := &ProxyConfigCacheRepository{
		trace: trace,
		ttl:   time.Duration(config.Redis.CacheTTLSeconds) * time.Second,
	}
	if redisClient.Enabled() {
		repository.client = redisClient.Client()
	}
	return repository
}

func (repository *ProxyConfigCacheRepository) Enabled() bool {
	return repository.client != nil
}

// Get returns (nil, nil) on a miss.
func (repository *ProxyConfigCacheRepository) Get(contextValue context.Context, bearerToken string) (_ *model.ProxyConfig, returnedError error) {
	if !repository.Enabled() {
		return nil, nil
	}
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	raw, getError := repository.client.Get(contextValue, repository.buildKey(bearerToken)).Bytes()
	if errors.Is(getError, redis.Nil) {
		repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "cache_get"})
		return nil, nil
	}
	if getError != nil {
		return nil, getError
	}

	var proxyConfig model.ProxyConfig
	if returnedError = json.Unmarshal(raw, &proxyConfig); returnedError != nil {
		return nil, returnedError
	}
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{
		Op:            "cache_get",
		ProxyConfigID: proxyConfig.ID.Hex(),
		CacheHit:      true,
		Found:         true,
		Enabled:       proxyConfig.Enabled,
	})
	return &proxyConfig, nil
}

func (repository *ProxyConfigCacheRepository) Set(contextValue context.Context, proxyConfig *model.ProxyConfig) (returnedError error) {
	if !repository.Enabled() || proxyConfig == nil {
		return nil
	}
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	raw, marshalError := json.Marshal(proxyConfig)
	if marshalError != nil {
		return marshalError
	}
	return repository.client.Set(contextValue, repository.buildKey(proxyConfig.BearerToken), raw, repository.ttl).Err()
}

// Invalidate drops the entries of the given tokens.
func (repository *ProxyConfigCacheRepository) Invalidate(contextValue context.Context, bearerTokens ...string) (returnedError error) {
	if !repository.Enabled() || len(bearerTokens) == 0 {
		return nil
	}
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	keys := make([]string, 0, len(bearerTokens))
	for _, token := range bearerTokens {
		if token != "" {
			keys = append(keys, repository.buildKey(token))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return repository.client.Del(contextValue, keys...).Err()
}

func (repository *ProxyConfigCacheRepository) Ping(contextValue context.Context) error {
	if !repository.Enabled() {
		return nil
	}
	return repository.client.Ping(contextValue).Err()
}

func (repository *ProxyConfigCacheRepository) buildKey(bearerToken string) string {
	return fmt.Sprintf("%s:%s:%s", core.RedisKeyServerName, core.RedisKeyProxyConfigToken, apikey.HashToken(bearerToken))
}
