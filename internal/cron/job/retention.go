package job

import (
	"context"
	"time"

	"mme/config"
	"mme/internal/dto"
	"mme/internal/service"

	"go.uber.org/zap"
)

// LogPruner deletes audit logs older than the given number of days.
type LogPruner interface {
	Prune(ctx context.Context, days int) (*dto.PruneResultDto, error)
}

type RetentionJob struct {
	logger  *zap.Logger
	pruner  LogPruner
	days    int
	timeout time.Duration
}

func NewRetentionJob(conf *config.Configuration, logger *zap.Logger, requestLogService *service.RequestLogService) *RetentionJob {
	return newRetentionJob(conf.Audit, logger, requestLogService)
}

func newRetentionJob(audit config.Audit, logger *zap.Logger, pruner LogPruner) *RetentionJob {
	return &RetentionJob{
		logger:  logger.With(zap.String("job", "audit.retention")),
		pruner:  pruner,
		days:    audit.RetentionDays,
		timeout: time.Minute,
	}
}

func (j *RetentionJob) Run() {
	if j.days < 1 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.pruner.Prune(ctx, j.days)
	if err != nil {
		j.logger.Error("audit retention failed", zap.Error(err))
		return
	}
	j.logger.Info("audit retention finished", zap.Int64("deleted", result.Deleted))
}
