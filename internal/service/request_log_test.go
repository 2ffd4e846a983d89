package service

import (
	"testing"
	"time"

	"mme/internal/dto"
	cErr "mme/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildRequestLogFilter(t *testing.T) {
	id := primitive.NewObjectID()
	filter, err := BuildRequestLogFilter(&dto.RequestLogQueryDto{
		ProxyConfigID: id.Hex(),
		Model:         "gpt-4o",
		StatusCode:    502,
		From:          "2025-01-01",
		To:            "2025-01-02T12:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, id, filter["proxyConfigId"])
	assert.Equal(t, "gpt-4o", filter["model"])
	assert.Equal(t, 502, filter["responseStatusCode"])
	timeRange := filter["requestTime"].(bson.M)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), timeRange["$gte"])
	assert.Equal(t, time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC), timeRange["$lte"])
}

func TestBuildRequestLogFilterEmpty(t *testing.T) {
	filter, err := BuildRequestLogFilter(&dto.RequestLogQueryDto{})
	require.NoError(t, err)
	assert.Empty(t, filter)
}

func TestBuildRequestLogFilterRejectsBadInput(t *testing.T) {
	_, err := BuildRequestLogFilter(&dto.RequestLogQueryDto{ProxyConfigID: "nope"})
	require.Error(t, err)
	assert.Equal(t, 400, cErr.From(err).HttpCode())

	_, err = BuildRequestLogFilter(&dto.RequestLogQueryDto{From: "yesterday"})
	require.Error(t, err)
}
