package repository

import (
	"context"
	"fmt"
	"time"

	"mme/internal/core"
	client "mme/internal/database/client"
	"mme/internal/database/mongodb/model"
	"mme/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type ProxyConfigRepository struct {
	trace      *telemetry.Trace
	collection *mongo.Collection
}

func NewProxyConfigRepository(logger *zap.Logger, trace *telemetry.Trace, mongoClient *client.MongoClient) *ProxyConfigRepository {
	repository := &ProxyConfigRepository{
		trace:      trace,
		collection: mongoClient.Database().Collection(string(core.MongoCollectionProxyConfigs)),
	}
	if err := repository.ensureIndexes(context.Background()); err != nil {
		logger.Warn("proxy_configs index creation failed", zap.Error(err))
	}
	return repository
}

func (repository *ProxyConfigRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bearerToken", Value: 1}},
			Options: options.Index().SetName("uniq_bearerToken").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_createdAt_desc"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

func (repository *ProxyConfigRepository) Create(contextValue context.Context, proxyConfig *model.ProxyConfig) (_ *model.ProxyConfig, returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "create"})

	nowUTC := time.Now().UTC()
	proxyConfig.CreatedAt = nowUTC
	proxyConfig.UpdatedAt = nowUTC

	insertResult, insertError := repository.collection.InsertOne(contextValue, proxyConfig)
	if insertError != nil {
		return nil, insertError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	proxyConfig.ID = objectID
	return proxyConfig, nil
}

// GetByID returns mongo.ErrNoDocuments when missing. Disabled configs are returned.
func (repository *ProxyConfigRepository) GetByID(contextValue context.Context, proxyConfigID primitive.ObjectID) (_ *model.ProxyConfig, returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "get_by_id", ProxyConfigID: proxyConfigID.Hex()})

	var proxyConfig model.ProxyConfig
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"_id": proxyConfigID}).Decode(&proxyConfig); returnedError != nil {
		return nil, returnedError
	}
	return &proxyConfig, nil
}

// GetByBearerToken matches regardless of the enabled flag; the caller decides.
func (repository *ProxyConfigRepository) GetByBearerToken(contextValue context.Context, bearerToken string) (_ *model.ProxyConfig, returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	var proxyConfig model.ProxyConfig
	returnedError = repository.collection.FindOne(contextValue, bson.M{"bearerToken": bearerToken}).Decode(&proxyConfig)
	if returnedError != nil {
		repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "get_by_token"})
		return nil, returnedError
	}
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{
		Op:            "get_by_token",
		ProxyConfigID: proxyConfig.ID.Hex(),
		Found:         true,
		Enabled:       proxyConfig.Enabled,
	})
	return &proxyConfig, nil
}

func (repository *ProxyConfigRepository) List(contextValue context.Context, filter bson.M) (_ []*model.ProxyConfig, returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	if filter == nil {
		filter = bson.M{}
	}
	cursor, findError := repository.collection.Find(contextValue, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	results := make([]*model.ProxyConfig, 0)
	for cursor.Next(contextValue) {
		var proxyConfig model.ProxyConfig
		if decodeError := cursor.Decode(&proxyConfig); decodeError != nil {
			return nil, decodeError
		}
		results = append(results, &proxyConfig)
	}
	if cursorError := cursor.Err(); cursorError != nil {
		return nil, cursorError
	}
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "list", Count: len(results)})
	return results, nil
}

// ListNames maps config ids to names for log listings.
func (repository *ProxyConfigRepository) ListNames(contextValue context.Context, proxyConfigIDs []primitive.ObjectID) (_ map[primitive.ObjectID]string, returnedError error) {
	names := make(map[primitive.ObjectID]string, len(proxyConfigIDs))
	if len(proxyConfigIDs) == 0 {
		return names, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	cursor, findError := repository.collection.Find(contextValue, bson.M{"_id": bson.M{"$in": proxyConfigIDs}}, opts)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	for cursor.Next(contextValue) {
		var row struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if decodeError := cursor.Decode(&row); decodeError != nil {
			return nil, decodeError
		}
		names[row.ID] = row.Name
	}
	return names, cursor.Err()
}

// Update replaces every mutable field except the bearer token.
func (repository *ProxyConfigRepository) Update(contextValue context.Context, proxyConfig *model.ProxyConfig) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "update", ProxyConfigID: proxyConfig.ID.Hex()})

	update := bson.M{"$set": bson.M{
		"name":            proxyConfig.Name,
		"targetUrl":       proxyConfig.TargetURL,
		"apiKey":          proxyConfig.APIKey,
		"enabled":         proxyConfig.Enabled,
		"supportedPaths":  proxyConfig.SupportedPaths,
		"timeoutSeconds":  proxyConfig.TimeoutSeconds,
		"maxRetries":      proxyConfig.MaxRetries,
		"logRequestBody":  proxyConfig.LogRequestBody,
		"logResponseBody": proxyConfig.LogResponseBody,
		"description":     proxyConfig.Description,
	}}
	return repository.updateOne(contextValue, proxyConfig.ID, update)
}

func (repository *ProxyConfigRepository) SetEnabled(contextValue context.Context, proxyConfigID primitive.ObjectID, enabled bool) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "set_enabled", ProxyConfigID: proxyConfigID.Hex(), Enabled: enabled})

	return repository.updateOne(contextValue, proxyConfigID, bson.M{"$set": bson.M{"enabled": enabled}})
}

// UpdateBearerToken swaps the token in a single $set.
func (repository *ProxyConfigRepository) UpdateBearerToken(contextValue context.Context, proxyConfigID primitive.ObjectID, bearerToken string) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "refresh_token", ProxyConfigID: proxyConfigID.Hex()})

	return repository.updateOne(contextValue, proxyConfigID, bson.M{"$set": bson.M{"bearerToken": bearerToken}})
}

func (repository *ProxyConfigRepository) Delete(contextValue context.Context, proxyConfigID primitive.ObjectID) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceProxyConfigMeta{Op: "delete", ProxyConfigID: proxyConfigID.Hex()})

	result, deleteError := repository.collection.DeleteOne(contextValue, bson.M{"_id": proxyConfigID})
	if deleteError != nil {
		return deleteError
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (repository *ProxyConfigRepository) ExistsBearerToken(contextValue context.Context, bearerToken string) (bool, error) {
	count, err := repository.collection.CountDocuments(contextValue, bson.M{"bearerToken": bearerToken}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (repository *ProxyConfigRepository) updateOne(contextValue context.Context, proxyConfigID primitive.ObjectID, update bson.M) error {
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": proxyConfigID}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
