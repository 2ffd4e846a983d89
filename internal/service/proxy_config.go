package service

import (
	"context"
	"errors"
	"strings"

	"mme/internal/core"
	"mme/internal/database/mongodb/model"
	mongoRepo "mme/internal/database/mongodb/repository"
	redisRepo "mme/internal/database/redis/repository"
	"mme/internal/dto"
	cErr "mme/internal/pkg/error"
	"mme/internal/telemetry"
	"mme/utils/apikey"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrProxyConfigDisabled is returned by Resolve together with the matched
// config when that config is switched off.
var ErrProxyConfigDisabled = errors.New("proxy configuration is disabled")

const maxTokenAttempts = 10

type proxyConfigStore interface {
	Create(ctx context.Context, proxyConfig *model.ProxyConfig) (*model.ProxyConfig, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.ProxyConfig, error)
	GetByBearerToken(ctx context.Context, bearerToken string) (*model.ProxyConfig, error)
	List(ctx context.Context, filter bson.M) ([]*model.ProxyConfig, error)
	Update(ctx context.Context, proxyConfig *model.ProxyConfig) error
	SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error
	UpdateBearerToken(ctx context.Context, id primitive.ObjectID, bearerToken string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ExistsBearerToken(ctx context.Context, bearerToken string) (bool, error)
}

type proxyConfigCache interface {
	Get(ctx context.Context, bearerToken string) (*model.ProxyConfig, error)
	Set(ctx context.Context, proxyConfig *model.ProxyConfig) error
	Invalidate(ctx context.Context, bearerTokens ...string) error
}

type ProxyConfigService struct {
	logger *zap.Logger
	trace  *telemetry.Trace
	metric *telemetry.Metric
	store  proxyConfigStore
	cache  proxyConfigCache
}

func NewProxyConfigService(
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	proxyConfigRepo *mongoRepo.ProxyConfigRepository,
	proxyConfigCache *redisRepo.ProxyConfigCacheRepository,
) *ProxyConfigService {
	return &ProxyConfigService{
		logger: logger,
		trace:  trace,
		metric: metric,
		store:  proxyConfigRepo,
		cache:  proxyConfigCache,
	}
}

// Resolve maps a bearer token to its config.
//   - unknown token: (nil, nil)
//   - enabled config: (cfg, nil)
//   - disabled config: (cfg, ErrProxyConfigDisabled)
//
// Cache failures fall back to MongoDB; only a MongoDB failure is returned.
func (s *ProxyConfigService) Resolve(ctx context.Context, bearerToken string) (_ *model.ProxyConfig, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx, string(core.SpanProxyResolve))
	defer func() {
		if errors.Is(returnedError, ErrProxyConfigDisabled) {
			end(nil)
			return
		}
		end(returnedError)
	}()

	meta := core.TraceProxyConfigMeta{Op: "resolve"}
	proxyConfig, err := s.cache.Get(ctx, bearerToken)
	switch {
	case err != nil:
		s.metric.ConfigCache("error")
		s.logger.Warn("proxy config cache read failed, falling back to MongoDB", zap.Error(err))
	case proxyConfig != nil:
		s.metric.ConfigCache("hit")
		meta.CacheHit = true
	default:
		s.metric.ConfigCache("miss")
	}

	if proxyConfig == nil {
		proxyConfig, err = s.store.GetByBearerToken(ctx, bearerToken)
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.trace.ApplyTraceAttributes(span, meta)
			return nil, nil
		}
		if err != nil {
			return nil, cErr.DatabaseError("resolve proxy config: " + err.Error())
		}
		if err := s.cache.Set(ctx, proxyConfig); err != nil {
			s.logger.Warn("proxy config cache write failed", zap.Error(err))
		}
	}

	meta.Found = true
	meta.Enabled = proxyConfig.Enabled
	meta.ProxyConfigID = proxyConfig.ID.Hex()
	s.trace.ApplyTraceAttributes(span, meta)

	if !proxyConfig.Enabled {
		return proxyConfig, ErrProxyConfigDisabled
	}
	return proxyConfig, nil
}

func (s *ProxyConfigService) List(ctx context.Context) ([]*dto.ProxyConfigResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfigs, err := s.store.List(ctx, bson.M{})
	if err != nil {
		return nil, cErr.DatabaseError("database ListProxyConfigs error")
	}
	resp := make([]*dto.ProxyConfigResponseDto, len(proxyConfigs))
	for i, proxyConfig := range proxyConfigs {
		resp[i] = modelToProxyConfigResponseDto(proxyConfig)
	}
	return resp, nil
}

func (s *ProxyConfigService) Get(ctx context.Context, id primitive.ObjectID) (*dto.ProxyConfigResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfig, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return modelToProxyConfigResponseDto(proxyConfig), nil
}

func (s *ProxyConfigService) Create(ctx context.Context, input *dto.CreateProxyConfigDto) (*dto.ProxyConfigResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfig := &model.ProxyConfig{
		Name:            strings.TrimSpace(input.Name),
		TargetURL:       normalizeTargetURL(input.TargetURL),
		APIKey:          input.APIKey,
		Enabled:         boolOr(input.Enabled, true),
		SupportedPaths:  input.SupportedPaths,
		TimeoutSeconds:  intOr(input.TimeoutSeconds, core.DefaultTimeoutSeconds),
		MaxRetries:      intOr(input.MaxRetries, core.DefaultMaxRetries),
		LogRequestBody:  boolOr(input.LogRequestBody, true),
		LogResponseBody: boolOr(input.LogResponseBody, true),
		Description:     input.Description,
	}
	if len(proxyConfig.SupportedPaths) == 0 {
		proxyConfig.SupportedPaths = append([]string(nil), core.DefaultSupportedPaths...)
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.uniqueBearerToken(ctx)
		if err != nil {
			return nil, err
		}
		proxyConfig.ID = primitive.NilObjectID
		proxyConfig.BearerToken = token
		created, err := s.store.Create(ctx, proxyConfig)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return nil, cErr.DatabaseError("database CreateProxyConfig error")
		}
		s.logger.Info("proxy config created", zap.String("proxyConfigId", created.ID.Hex()), zap.String("name", created.Name))
		return modelToProxyConfigResponseDto(created), nil
	}
	return nil, cErr.InternalServer("could not allocate a unique bearer token")
}

func (s *ProxyConfigService) Update(ctx context.Context, id primitive.ObjectID, input *dto.UpdateProxyConfigDto) (*dto.ProxyConfigResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfig, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	proxyConfig.Name = strings.TrimSpace(input.Name)
	proxyConfig.TargetURL = normalizeTargetURL(input.TargetURL)
	if input.APIKey != "" {
		proxyConfig.APIKey = input.APIKey
	}
	proxyConfig.Enabled = input.Enabled
	if len(input.SupportedPaths) > 0 {
		proxyConfig.SupportedPaths = input.SupportedPaths
	}
	proxyConfig.TimeoutSeconds = input.TimeoutSeconds
	proxyConfig.MaxRetries = input.MaxRetries
	proxyConfig.LogRequestBody = input.LogRequestBody
	proxyConfig.LogResponseBody = input.LogResponseBody
	proxyConfig.Description = input.Description

	if err := s.store.Update(ctx, proxyConfig); err != nil {
		return nil, mapStoreError(err, "UpdateProxyConfig")
	}
	s.invalidate(ctx, proxyConfig.BearerToken)
	return s.Get(ctx, id)
}

// Toggle flips the enabled flag and returns the new state.
func (s *ProxyConfigService) Toggle(ctx context.Context, id primitive.ObjectID) (*dto.ProxyConfigResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfig, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetEnabled(ctx, id, !proxyConfig.Enabled); err != nil {
		return nil, mapStoreError(err, "ToggleProxyConfig")
	}
	s.invalidate(ctx, proxyConfig.BearerToken)
	s.logger.Info("proxy config toggled", zap.String("proxyConfigId", id.Hex()), zap.Bool("enabled", !proxyConfig.Enabled))
	return s.Get(ctx, id)
}

// RefreshBearerToken issues a new unique token and retires the old one.
func (s *ProxyConfigService) RefreshBearerToken(ctx context.Context, id primitive.ObjectID) (*dto.RefreshTokenResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfig, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.uniqueBearerToken(ctx)
		if err != nil {
			return nil, err
		}
		err = s.store.UpdateBearerToken(ctx, id, token)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return nil, mapStoreError(err, "RefreshBearerToken")
		}
		s.invalidate(ctx, proxyConfig.BearerToken)
		s.logger.Info("bearer token refreshed", zap.String("proxyConfigId", id.Hex()))
		return &dto.RefreshTokenResponseDto{BearerToken: token}, nil
	}
	return nil, cErr.InternalServer("could not allocate a unique bearer token")
}

func (s *ProxyConfigService) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	proxyConfig, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreError(err, "DeleteProxyConfig")
	}
	s.invalidate(ctx, proxyConfig.BearerToken)
	return nil
}

func (s *ProxyConfigService) getByID(ctx context.Context, id primitive.ObjectID) (*model.ProxyConfig, error) {
	proxyConfig, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "GetProxyConfig")
	}
	return proxyConfig, nil
}

func (s *ProxyConfigService) uniqueBearerToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := apikey.GenerateBearerToken()
		if err != nil {
			return "", cErr.InternalServer("generate bearer token: " + err.Error())
		}
		exists, err := s.store.ExistsBearerToken(ctx, token)
		if err != nil {
			return "", cErr.DatabaseError("database ExistsBearerToken error")
		}
		if !exists {
			return token, nil
		}
	}
	return "", cErr.InternalServer("could not allocate a unique bearer token")
}

func (s *ProxyConfigService) invalidate(ctx context.Context, bearerToken string) {
	if err := s.cache.Invalidate(ctx, bearerToken); err != nil {
		s.logger.Warn("proxy config cache invalidation failed", zap.Error(err))
	}
}

func mapStoreError(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cErr.NotFound("proxy config not found")
	}
	return cErr.DatabaseError("database " + op + " error")
}

func normalizeTargetURL(targetURL string) string {
	return strings.TrimRight(strings.TrimSpace(targetURL), "/")
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func modelToProxyConfigResponseDto(proxyConfig *model.ProxyConfig) *dto.ProxyConfigResponseDto {
	return &dto.ProxyConfigResponseDto{
		ID:              proxyConfig.ID.Hex(),
		Name:            proxyConfig.Name,
		TargetURL:       proxyConfig.TargetURL,
		APIKey:          apikey.Mask(proxyConfig.APIKey),
		BearerToken:     proxyConfig.BearerToken,
		Enabled:         proxyConfig.Enabled,
		SupportedPaths:  proxyConfig.SupportedPaths,
		TimeoutSeconds:  proxyConfig.TimeoutSeconds,
		MaxRetries:      proxyConfig.MaxRetries,
		LogRequestBody:  proxyConfig.LogRequestBody,
		LogResponseBody: proxyConfig.LogResponseBody,
		Description:     proxyConfig.Description,
		CreatedAt:       proxyConfig.CreatedAt,
		UpdatedAt:       proxyConfig.UpdatedAt,
	}
}
