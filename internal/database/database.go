package database

import (
	client "mme/internal/database/client"
	fluentdRepo "mme/internal/database/fluentd/repository"
	mongoRepo "mme/internal/database/mongodb/repository"
	redisRepo "mme/internal/database/redis/repository"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	client.NewMongoClient,
	client.NewRedisClient,
	client.NewFluentdClient,
	mongoRepo.ProviderSet,
	redisRepo.ProviderSet,
	fluentdRepo.ProviderSet,
)
