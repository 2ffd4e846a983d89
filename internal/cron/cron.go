package cron

import (
	"context"

	"mme/config"
	"mme/internal/cron/job"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCron, job.NewRetentionJob)

type Cron struct {
	logger       *zap.Logger
	server       *cron.Cron
	conf         config.Audit
	retentionJob *job.RetentionJob
}

// NewCron .
func NewCron(conf *config.Configuration, logger *zap.Logger, retentionJob *job.RetentionJob) *Cron {
	server := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &Cron{
		logger:       logger,
		server:       server,
		conf:         conf.Audit,
		retentionJob: retentionJob,
	}
}

func (c *Cron) Run() error {
	if c.conf.RetentionDays > 0 {
		if _, err := c.server.AddFunc(c.conf.RetentionCron, c.retentionJob.Run); err != nil {
			return err
		}
		c.logger.Info("audit retention job scheduled",
			zap.String("spec", c.conf.RetentionCron),
			zap.Int("days", c.conf.RetentionDays),
		)
	}

	c.server.Start()
	return nil
}

func (c *Cron) Stop(ctx context.Context) error {
	stopped := c.server.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
