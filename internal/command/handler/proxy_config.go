package command

import (
	"context"
	"fmt"
	"text/tabwriter"

	"mme/internal/dto"
	"mme/internal/service"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type proxyConfigStore interface {
	List(ctx context.Context) ([]*dto.ProxyConfigResponseDto, error)
	RefreshBearerToken(ctx context.Context, id primitive.ObjectID) (*dto.RefreshTokenResponseDto, error)
}

type ProxyConfigHandler struct {
	logger  *zap.Logger
	service proxyConfigStore
}

func NewProxyConfigHandler(logger *zap.Logger, proxyConfigService *service.ProxyConfigService) *ProxyConfigHandler {
	return &ProxyConfigHandler{logger: logger, service: proxyConfigService}
}

// List prints every proxy config, one per row.
func (handler *ProxyConfigHandler) List(cmd *cobra.Command, args []string) error {
	configs, err := handler.service.List(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tTARGET\tTIMEOUT")
	for _, c := range configs {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%ds\n", c.ID, c.Name, c.Enabled, c.TargetURL, c.TimeoutSeconds)
	}
	return w.Flush()
}

func (handler *ProxyConfigHandler) RefreshToken(cmd *cobra.Command, args []string) error {
	id, err := primitive.ObjectIDFromHex(args[0])
	if err != nil {
		return fmt.Errorf("invalid config id %q: %w", args[0], err)
	}
	result, err := handler.service.RefreshBearerToken(cmd.Context(), id)
	if err != nil {
		return err
	}
	handler.logger.Info("bearer token rotated from cli", zap.String("id", args[0]))
	cmd.Println(result.BearerToken)
	return nil
}
