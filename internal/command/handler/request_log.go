package command

import (
	"context"

	"mme/internal/dto"
	"mme/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type logPruner interface {
	Prune(ctx context.Context, days int) (*dto.PruneResultDto, error)
}

type RequestLogHandler struct {
	logger *zap.Logger
	pruner logPruner
}

func NewRequestLogHandler(logger *zap.Logger, requestLogService *service.RequestLogService) *RequestLogHandler {
	return &RequestLogHandler{logger: logger, pruner: requestLogService}
}

func (handler *RequestLogHandler) Prune(cmd *cobra.Command, days int) error {
	result, err := handler.pruner.Prune(cmd.Context(), days)
	if err != nil {
		return err
	}
	cmd.Printf("deleted %d request logs older than %d days\n", result.Deleted, days)
	return nil
}
