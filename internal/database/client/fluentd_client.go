package client

import (
	"context"
	"time"

	"mme/config"

	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
)

// FluentdClient forwards records with fluent-logger-golang. A disabled client
// accepts and discards every record.
type FluentdClient struct {
	client    *fluent.Fluent
	tagPrefix string
}

func NewFluentdClient(logger *zap.Logger, config *config.Configuration) (*FluentdClient, func(), error) {
	prefix := config.App.Name
	if config.Fluentd.TagPrefix != "" {
		prefix = config.Fluentd.TagPrefix
	}
	if !config.Fluentd.Enabled {
		logger.Info("Fluentd disabled, audit mirror is off")
		return &FluentdClient{tagPrefix: prefix}, func() {}, nil
	}

	var timeout time.Duration
	if config.Fluentd.Timeout > 0 {
		timeout = time.Duration(config.Fluentd.Timeout) * time.Millisecond
	}
	f, err := fluent.New(fluent.Config{
		FluentHost: config.Fluentd.Host,
		FluentPort: config.Fluentd.Port,
		Timeout:    timeout,
		TagPrefix:  prefix,
		Async:      config.Fluentd.Async,
	})
	if err != nil {
		logger.Error("failed to connect to Fluentd", zap.Error(err))
		return nil, nil, err
	}
	logger.Info("Connected to Fluentd", zap.String("tagPrefix", prefix))

	fluentdClient := &FluentdClient{client: f, tagPrefix: prefix}
	cleanup := func() {
		logger.Info("closing the Fluentd resources")
		if err := fluentdClient.Close(); err != nil {
			logger.Error("failed to close Fluentd client", zap.Error(err))
		}
	}
	return fluentdClient, cleanup, nil
}

func (c *FluentdClient) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *FluentdClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Post sends one record. fluent-logger-golang prepends TagPrefix itself, so
// tag is the bare suffix.
func (c *FluentdClient) Post(ctx context.Context, tag string, message any) error {
	if c.client == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.Post(tag, message)
}
