package repository

import (
	"context"
	"encoding/json"
	"time"

	"mme/config"
	"mme/internal/core"
	"mme/internal/database/client"
	fluentdModel "mme/internal/database/fluentd/model"
	mongoModel "mme/internal/database/mongodb/model"
)

const timeLayout = "2006-01-02 15:04:05.999999 UTC"

// LogRepository mirrors audit records to Fluentd.
type LogRepository struct {
	fluentdClient *client.FluentdClient
	version       string
}

func NewLogRepository(config *config.Configuration, client *client.FluentdClient) *LogRepository {
	version := "1.0.0"
	if config.App.Version != "" {
		version = config.App.Version
	}
	return &LogRepository{fluentdClient: client, version: version}
}

func (repository *LogRepository) Enabled() bool {
	return repository.fluentdClient.Enabled()
}

func (repository *LogRepository) LogExchange(ctx context.Context, requestLog mongoModel.ApiRequestLog) error {
	if !repository.Enabled() {
		return nil
	}
	record := fluentdModel.ApiRequestLog{
		RequestID:    requestLog.RequestID,
		ProxyName:    requestLog.ProxyName,
		Model:        requestLog.Model,
		Method:       requestLog.Method,
		Path:         requestLog.RequestPath,
		TargetURL:    requestLog.TargetURL,
		StatusCode:   requestLog.ResponseStatusCode,
		Streaming:    requestLog.Streaming,
		Truncated:    requestLog.Truncated,
		DurationMs:   requestLog.DurationMs,
		ErrorMessage: requestLog.ErrorMessage,
		ClientIP:     requestLog.ClientIP,
		UserAgent:    requestLog.UserAgent,
		TokenUsage:   requestLog.TokenUsage,
		Version:      repository.version,
		RequestTS:    requestLog.RequestTime.UTC().Format(timeLayout),
		LoggedAt:     time.Now().UTC().Format(timeLayout),
	}
	if requestLog.ProxyConfigID != nil {
		record.ProxyConfigID = requestLog.ProxyConfigID.Hex()
	}

	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var fluentdMessage map[string]any
	if err := json.Unmarshal(b, &fluentdMessage); err != nil {
		return err
	}
	return repository.fluentdClient.Post(ctx, string(core.FluentdApiRequestLog), fluentdMessage)
}
