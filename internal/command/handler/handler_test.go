package command

import (
	"bytes"
	"context"
	"testing"
	"time"

	"mme/internal/dto"
	cErr "mme/internal/pkg/error"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeConfigStore struct {
	configs   []*dto.ProxyConfigResponseDto
	refreshed []primitive.ObjectID
}

func (s *fakeConfigStore) List(ctx context.Context) ([]*dto.ProxyConfigResponseDto, error) {
	return s.configs, nil
}

func (s *fakeConfigStore) RefreshBearerToken(ctx context.Context, id primitive.ObjectID) (*dto.RefreshTokenResponseDto, error) {
	s.refreshed = append(s.refreshed, id)
	return &dto.RefreshTokenResponseDto{BearerToken: "new-token"}, nil
}

type fakePruner struct{ days int }

func (p *fakePruner) Prune(ctx context.Context, days int) (*dto.PruneResultDto, error) {
	if days < 1 {
		return nil, cErr.BadRequest("retention days must be at least 1")
	}
	p.days = days
	return &dto.PruneResultDto{Deleted: 42}, nil
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd, out
}

func TestListPrintsConfigs(t *testing.T) {
	store := &fakeConfigStore{configs: []*dto.ProxyConfigResponseDto{
		{ID: "65f000000000000000000001", Name: "openai", Enabled: true, TargetURL: "https://api.openai.com", TimeoutSeconds: 300, CreatedAt: time.Now()},
	}}
	cmd, out := newTestCommand()

	require.NoError(t, (&ProxyConfigHandler{logger: zap.NewNop(), service: store}).List(cmd, nil))
	assert.Contains(t, out.String(), "openai")
	assert.Contains(t, out.String(), "https://api.openai.com")
	assert.Contains(t, out.String(), "300s")
}

func TestRefreshTokenRejectsBadID(t *testing.T) {
	store := &fakeConfigStore{}
	cmd, _ := newTestCommand()

	err := (&ProxyConfigHandler{logger: zap.NewNop(), service: store}).RefreshToken(cmd, []string{"nope"})
	assert.Error(t, err)
	assert.Empty(t, store.refreshed)
}

func TestRefreshTokenPrintsToken(t *testing.T) {
	store := &fakeConfigStore{}
	cmd, out := newTestCommand()
	id := primitive.NewObjectID()

	require.NoError(t, (&ProxyConfigHandler{logger: zap.NewNop(), service: store}).RefreshToken(cmd, []string{id.Hex()}))
	assert.Equal(t, []primitive.ObjectID{id}, store.refreshed)
	assert.Equal(t, "new-token\n", out.String())
}

func TestPrune(t *testing.T) {
	pruner := &fakePruner{}
	cmd, out := newTestCommand()

	require.NoError(t, (&RequestLogHandler{logger: zap.NewNop(), pruner: pruner}).Prune(cmd, 30))
	assert.Equal(t, 30, pruner.days)
	assert.Contains(t, out.String(), "deleted 42")

	assert.Error(t, (&RequestLogHandler{logger: zap.NewNop(), pruner: pruner}).Prune(cmd, 0))
}
