package service

import (
	"context"
	"errors"
	"time"

	"mme/internal/core"
	"mme/internal/database/mongodb/model"
	mongoRepo "mme/internal/database/mongodb/repository"
	"mme/internal/dto"
	cErr "mme/internal/pkg/error"
	"mme/internal/telemetry"
	"mme/utils/validate"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultLogPageSize = 20
	maxLogPageSize     = 200
	defaultRecentCount = 100
	maxRecentCount     = 1000
)

type RequestLogService struct {
	logger          *zap.Logger
	trace           *telemetry.Trace
	requestLogRepo  *mongoRepo.ApiRequestLogRepository
	proxyConfigRepo *mongoRepo.ProxyConfigRepository
}

func NewRequestLogService(
	logger *zap.Logger,
	trace *telemetry.Trace,
	requestLogRepo *mongoRepo.ApiRequestLogRepository,
	proxyConfigRepo *mongoRepo.ProxyConfigRepository,
) *RequestLogService {
	return &RequestLogService{
		logger:          logger,
		trace:           trace,
		requestLogRepo:  requestLogRepo,
		proxyConfigRepo: proxyConfigRepo,
	}
}

// Search returns one page of logs, newest first.
func (s *RequestLogService) Search(ctx context.Context, query *dto.RequestLogQueryDto) (*dto.RequestLogPageDto, error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer end(nil)

	filter, err := BuildRequestLogFilter(query)
	if err != nil {
		return nil, err
	}
	page, size := query.PageIndex, query.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultLogPageSize
	}
	size = min(size, maxLogPageSize)

	logs, total, err := s.requestLogRepo.FindPage(ctx, core.ListOptions{Filter: filter, Page: page, Size: size})
	if err != nil {
		return nil, cErr.DatabaseError("database SearchRequestLogs error")
	}
	s.trace.ApplyTraceAttributes(span, core.TraceRequestLogQueryMeta{
		ProxyConfigID: query.ProxyConfigID,
		Model:         query.Model,
		Page:          page,
		Size:          size,
		Total:         total,
	})
	s.attachProxyNames(ctx, logs)
	return &dto.RequestLogPageDto{List: logs, TotalCount: total, PageIndex: page, PageSize: size}, nil
}

func (s *RequestLogService) Recent(ctx context.Context, count int64) ([]*model.ApiRequestLog, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if count < 1 {
		count = defaultRecentCount
	}
	logs, err := s.requestLogRepo.Recent(ctx, min(count, maxRecentCount))
	if err != nil {
		return nil, cErr.DatabaseError("database RecentRequestLogs error")
	}
	s.attachProxyNames(ctx, logs)
	return logs, nil
}

func (s *RequestLogService) GetByRequestID(ctx context.Context, requestID string) (*model.ApiRequestLog, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	requestLog, err := s.requestLogRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cErr.NotFound("request log not found")
		}
		return nil, cErr.DatabaseError("database GetRequestLog error")
	}
	s.attachProxyNames(ctx, []*model.ApiRequestLog{requestLog})
	return requestLog, nil
}

func (s *RequestLogService) DistinctModels(ctx context.Context) ([]string, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	models, err := s.requestLogRepo.DistinctModels(ctx)
	if err != nil {
		return nil, cErr.DatabaseError("database DistinctModels error")
	}
	return models, nil
}

// Prune deletes logs older than the given number of days.
func (s *RequestLogService) Prune(ctx context.Context, days int) (*dto.PruneResultDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if days < 1 {
		return nil, cErr.BadRequest("retention days must be at least 1")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := s.requestLogRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, cErr.DatabaseError("database PruneRequestLogs error")
	}
	s.logger.Info("request logs pruned", zap.Int("days", days), zap.Int64("deleted", deleted))
	return &dto.PruneResultDto{Deleted: deleted}, nil
}

// attachProxyNames replaces stored names with the current config names.
func (s *RequestLogService) attachProxyNames(ctx context.Context, logs []*model.ApiRequestLog) {
	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	for _, l := range logs {
		if l.ProxyConfigID == nil {
			continue
		}
		if _, ok := seen[*l.ProxyConfigID]; !ok {
			seen[*l.ProxyConfigID] = struct{}{}
			ids = append(ids, *l.ProxyConfigID)
		}
	}
	names, err := s.proxyConfigRepo.ListNames(ctx, ids)
	if err != nil {
		s.logger.Warn("proxy name lookup failed", zap.Error(err))
		return
	}
	for _, l := range logs {
		if l.ProxyConfigID == nil {
			continue
		}
		if name, ok := names[*l.ProxyConfigID]; ok {
			l.ProxyName = name
		}
	}
}

// BuildRequestLogFilter turns the query parameters into a MongoDB filter.
func BuildRequestLogFilter(query *dto.RequestLogQueryDto) (bson.M, error) {
	filter := bson.M{}
	if query.ProxyConfigID != "" {
		id, err := primitive.ObjectIDFromHex(query.ProxyConfigID)
		if err != nil {
			return nil, cErr.ValidatePathParamsErr("invalid proxyConfigId")
		}
		filter["proxyConfigId"] = id
	}
	if query.Model != "" {
		filter["model"] = query.Model
	}
	if query.StatusCode != 0 {
		filter["responseStatusCode"] = query.StatusCode
	}
	timeRange := bson.M{}
	if query.From != "" {
		from, err := validate.ParseTime(query.From)
		if err != nil {
			return nil, cErr.ValidatePathParamsErr("invalid from")
		}
		timeRange["$gte"] = from.UTC()
	}
	if query.To != "" {
		to, err := validate.ParseTime(query.To)
		if err != nil {
			return nil, cErr.ValidatePathParamsErr("invalid to")
		}
		timeRange["$lte"] = to.UTC()
	}
	if len(timeRange) > 0 {
		filter["requestTime"] = timeRange
	}
	return filter, nil
}
