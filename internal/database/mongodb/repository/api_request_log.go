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

type ApiRequestLogRepository struct {
	trace      *telemetry.Trace
	collection *mongo.Collection
}

func NewApiRequestLogRepository(logger *zap.Logger, trace *telemetry.Trace, mongoClient *client.MongoClient) *ApiRequestLogRepository {
	repository := &ApiRequestLogRepository{
		trace:      trace,
		collection: mongoClient.Database().Collection(string(core.MongoCollectionApiRequestLogs)),
	}
	if err := repository.ensureIndexes(context.Background()); err != nil {
		logger.Warn("api_request_logs index creation failed", zap.Error(err))
	}
	return repository
}

func (repository *ApiRequestLogRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "requestId", Value: 1}},
			Options: options.Index().SetName("uniq_requestId").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "requestTime", Value: -1}},
			Options: options.Index().SetName("idx_requestTime_desc"),
		},
		{
			Keys:    bson.D{{Key: "proxyConfigId", Value: 1}, {Key: "requestTime", Value: -1}},
			Options: options.Index().SetName("idx_proxyConfigId_requestTime"),
		},
		{
			Keys:    bson.D{{Key: "model", Value: 1}},
			Options: options.Index().SetName("idx_model"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

// Insert writes one audit record. A duplicate requestId is reported as an error.
func (repository *ApiRequestLogRepository) Insert(contextValue context.Context, requestLog *model.ApiRequestLog) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()
	repository.trace.ApplyTraceAttributes(span, core.TraceAuditMeta{
		RequestID:  requestLog.RequestID,
		StatusCode: requestLog.ResponseStatusCode,
		Streaming:  requestLog.Streaming,
	})

	insertResult, insertError := repository.collection.InsertOne(contextValue, requestLog)
	if insertError != nil {
		return insertError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	requestLog.ID = objectID
	return nil
}

// FindPage returns one page ordered by requestTime desc together with the total count.
func (repository *ApiRequestLogRepository) FindPage(contextValue context.Context, listOptions core.ListOptions) (_ []*model.ApiRequestLog, _ int64, returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	filter := listOptions.Filter
	if filter == nil {
		filter = bson.M{}
	}
	total, countError := repository.collection.CountDocuments(contextValue, filter)
	if countError != nil {
		return nil, 0, countError
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "requestTime", Value: -1}}).
		SetSkip(listOptions.Skip()).
		SetLimit(listOptions.Size)
	results, findError := repository.find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, 0, findError
	}
	repository.trace.ApplyTraceAttributes(span, core.TraceRequestLogQueryMeta{
		Page:  listOptions.Page,
		Size:  listOptions.Size,
		Total: total,
	})
	return results, total, nil
}

func (repository *ApiRequestLogRepository) Recent(contextValue context.Context, count int64) (_ []*model.ApiRequestLog, returnedError error) {
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	findOptions := options.Find().SetSort(bson.D{{Key: "requestTime", Value: -1}}).SetLimit(count)
	return repository.find(contextValue, bson.M{}, findOptions)
}

func (repository *ApiRequestLogRepository) GetByRequestID(contextValue context.Context, requestID string) (_ *model.ApiRequestLog, returnedError error) {
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	var requestLog model.ApiRequestLog
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"requestId": requestID}).Decode(&requestLog); returnedError != nil {
		return nil, returnedError
	}
	return &requestLog, nil
}

// DistinctModels lists every non-empty model name seen in the logs.
func (repository *ApiRequestLogRepository) DistinctModels(contextValue context.Context) (_ []string, returnedError error) {
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	values, distinctError := repository.collection.Distinct(contextValue, "model", bson.M{"model": bson.M{"$nin": bson.A{nil, ""}}})
	if distinctError != nil {
		return nil, distinctError
	}
	models := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			models = append(models, s)
		}
	}
	return models, nil
}

// DeleteBefore removes records whose requestTime is older than cutoff.
func (repository *ApiRequestLogRepository) DeleteBefore(contextValue context.Context, cutoff time.Time) (_ int64, returnedError error) {
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	result, deleteError := repository.collection.DeleteMany(contextValue, bson.M{"requestTime": bson.M{"$lt": cutoff.UTC()}})
	if deleteError != nil {
		return 0, deleteError
	}
	return result.DeletedCount, nil
}

func (repository *ApiRequestLogRepository) find(contextValue context.Context, filter bson.M, findOptions *options.FindOptions) ([]*model.ApiRequestLog, error) {
	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	results := make([]*model.ApiRequestLog, 0)
	for cursor.Next(contextValue) {
		var requestLog model.ApiRequestLog
		if decodeError := cursor.Decode(&requestLog); decodeError != nil {
			return nil, decodeError
		}
		results = append(results, &requestLog)
	}
	if cursorError := cursor.Err(); cursorError != nil {
		return nil, cursorError
	}
	return results, nil
}
