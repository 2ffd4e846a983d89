package repository

import (
	"github.com/google/wire"
	"go.mongodb.org/mongo-driver/bson"
)

var ProviderSet = wire.NewSet(
	NewProxyConfigRepository,
	NewApiRequestLogRepository,
)

// withUpdatedAt stamps updatedAt on the server side.
func withUpdatedAt(update bson.M) bson.M {
	currentDate, ok := update["$currentDate"].(bson.M)
	if !ok || currentDate == nil {
		currentDate = bson.M{}
	}
	currentDate["updatedAt"] = true
	update["$currentDate"] = currentDate
	return update
}
