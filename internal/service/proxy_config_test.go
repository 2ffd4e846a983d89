package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"mme/internal/core"
	"mme/internal/database/mongodb/model"
	"mme/internal/dto"
	cErr "mme/internal/pkg/error"
	"mme/internal/telemetry"
	"mme/utils/apikey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type memoryConfigStore struct {
	mu      sync.Mutex
	configs map[primitive.ObjectID]*model.ProxyConfig
	lookups int
	err     error
}

func newMemoryConfigStore(configs ...*model.ProxyConfig) *memoryConfigStore {
	s := &memoryConfigStore{configs: map[primitive.ObjectID]*model.ProxyConfig{}}
	for _, c := range configs {
		s.configs[c.ID] = c
	}
	return s
}

func (s *memoryConfigStore) Create(_ context.Context, c *model.ProxyConfig) (*model.ProxyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.ID = primitive.NewObjectID()
	s.configs[cp.ID] = &cp
	return &cp, nil
}

func (s *memoryConfigStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.ProxyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *c
	return &cp, nil
}

func (s *memoryConfigStore) GetByBearerToken(_ context.Context, token string) (*model.ProxyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.configs {
		if c.BearerToken == token {
			cp := *c
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *memoryConfigStore) List(context.Context, bson.M) ([]*model.ProxyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ProxyConfig
	for _, c := range s.configs {
		out = append(out, c)
	}
	return out, nil
}

func (s *memoryConfigStore) Update(_ context.Context, c *model.ProxyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[c.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	cp := *c
	s.configs[c.ID] = &cp
	return nil
}

func (s *memoryConfigStore) SetEnabled(_ context.Context, id primitive.ObjectID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.Enabled = enabled
	return nil
}

func (s *memoryConfigStore) UpdateBearerToken(_ context.Context, id primitive.ObjectID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.BearerToken = token
	return nil
}

func (s *memoryConfigStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(s.configs, id)
	return nil
}

func (s *memoryConfigStore) ExistsBearerToken(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.configs {
		if c.BearerToken == token {
			return true, nil
		}
	}
	return false, nil
}

type memoryConfigCache struct {
	entries     map[string]*model.ProxyConfig
	getErr      error
	invalidated []string
}

func (c *memoryConfigCache) Get(_ context.Context, token string) (*model.ProxyConfig, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[token], nil
}

func (c *memoryConfigCache) Set(_ context.Context, cfg *model.ProxyConfig) error {
	if c.entries == nil {
		c.entries = map[string]*model.ProxyConfig{}
	}
	c.entries[cfg.BearerToken] = cfg
	return nil
}

func (c *memoryConfigCache) Invalidate(_ context.Context, tokens ...string) error {
	c.invalidated = append(c.invalidated, tokens...)
	for _, t := range tokens {
		delete(c.entries, t)
	}
	return nil
}

func newTestProxyConfigService(store *memoryConfigStore, cache *memoryConfigCache) *ProxyConfigService {
	return &ProxyConfigService{
		logger: zap.NewNop(),
		trace:  &telemetry.Trace{},
		metric: &telemetry.Metric{},
		store:  store,
		cache:  cache,
	}
}

func TestResolve(t *testing.T) {
	enabled := &model.ProxyConfig{ID: primitive.NewObjectID(), Name: "openai", BearerToken: "pk-on", Enabled: true}
	disabled := &model.ProxyConfig{ID: primitive.NewObjectID(), Name: "legacy", BearerToken: "pk-off"}
	store := newMemoryConfigStore(enabled, disabled)
	cache := &memoryConfigCache{}
	svc := newTestProxyConfigService(store, cache)
	ctx := context.Background()

	cfg, err := svc.Resolve(ctx, "pk-unknown")
	assert.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = svc.Resolve(ctx, "pk-on")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Name)
	assert.Contains(t, cache.entries, "pk-on")

	cfg, err = svc.Resolve(ctx, "pk-off")
	assert.ErrorIs(t, err, ErrProxyConfigDisabled)
	require.NotNil(t, cfg)
	assert.Equal(t, "legacy", cfg.Name)
}

func TestResolveUsesCache(t *testing.T) {
	cfg := &model.ProxyConfig{ID: primitive.NewObjectID(), BearerToken: "pk-on", Enabled: true}
	store := newMemoryConfigStore(cfg)
	cache := &memoryConfigCache{}
	svc := newTestProxyConfigService(store, cache)

	_, err := svc.Resolve(context.Background(), "pk-on")
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), "pk-on")
	require.NoError(t, err)

	assert.Equal(t, 1, store.lookups)
}

func TestResolveFallsBackWhenCacheFails(t *testing.T) {
	cfg := &model.ProxyConfig{ID: primitive.NewObjectID(), BearerToken: "pk-on", Enabled: true}
	svc := newTestProxyConfigService(newMemoryConfigStore(cfg), &memoryConfigCache{getErr: errors.New("redis down")})

	got, err := svc.Resolve(context.Background(), "pk-on")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, got.ID)
}

func TestResolveStoreFailureIsHard(t *testing.T) {
	store := newMemoryConfigStore()
	store.err = errors.New("no reachable servers")
	svc := newTestProxyConfigService(store, &memoryConfigCache{})

	cfg, err := svc.Resolve(context.Background(), "pk-any")
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Equal(t, cErr.DATABASE_ERROR, cErr.From(err).ErrorCode())
}

func TestCreateAppliesDefaults(t *testing.T) {
	store := newMemoryConfigStore()
	svc := newTestProxyConfigService(store, &memoryConfigCache{})

	created, err := svc.Create(context.Background(), &dto.CreateProxyConfigDto{
		Name:      " openai ",
		TargetURL: "https://api.openai.com/",
		APIKey:    "sk-1234567890abcdef",
	})
	require.NoError(t, err)

	assert.Equal(t, "openai", created.Name)
	assert.Equal(t, "https://api.openai.com", created.TargetURL)
	assert.True(t, strings.HasPrefix(created.BearerToken, core.BearerTokenPrefix))
	assert.Len(t, created.BearerToken, len(core.BearerTokenPrefix)+core.BearerTokenLength)
	assert.True(t, created.Enabled)
	assert.True(t, created.LogRequestBody)
	assert.True(t, created.LogResponseBody)
	assert.Equal(t, core.DefaultTimeoutSeconds, created.TimeoutSeconds)
	assert.Equal(t, core.DefaultMaxRetries, created.MaxRetries)
	assert.Equal(t, core.DefaultSupportedPaths, created.SupportedPaths)
	assert.Equal(t, apikey.Mask("sk-1234567890abcdef"), created.APIKey)
}

func TestRefreshBearerTokenInvalidatesOldToken(t *testing.T) {
	cfg := &model.ProxyConfig{ID: primitive.NewObjectID(), BearerToken: "pk-old", Enabled: true}
	store := newMemoryConfigStore(cfg)
	cache := &memoryConfigCache{}
	svc := newTestProxyConfigService(store, cache)

	_, err := svc.Resolve(context.Background(), "pk-old")
	require.NoError(t, err)

	resp, err := svc.RefreshBearerToken(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pk-old", resp.BearerToken)
	assert.Contains(t, cache.invalidated, "pk-old")

	got, err := svc.Resolve(context.Background(), "pk-old")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestToggle(t *testing.T) {
	cfg := &model.ProxyConfig{ID: primitive.NewObjectID(), BearerToken: "pk-on", Enabled: true}
	cache := &memoryConfigCache{}
	svc := newTestProxyConfigService(newMemoryConfigStore(cfg), cache)

	resp, err := svc.Toggle(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.False(t, resp.Enabled)
	assert.Equal(t, []string{"pk-on"}, cache.invalidated)

	_, err = svc.Resolve(context.Background(), "pk-on")
	assert.ErrorIs(t, err, ErrProxyConfigDisabled)
}

func TestGetMissing(t *testing.T) {
	svc := newTestProxyConfigService(newMemoryConfigStore(), &memoryConfigCache{})
	_, err := svc.Get(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, 404, cErr.From(err).HttpCode())
}
