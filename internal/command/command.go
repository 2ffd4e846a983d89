package command

import (
	commandHandler "mme/internal/command/handler"

	"github.com/google/wire"
	"github.com/spf13/cobra"
)

var ProviderSet = wire.NewSet(
	NewCommand,
	commandHandler.NewProxyConfigHandler,
	commandHandler.NewRequestLogHandler,
)

type Command struct {
	proxyConfigHandler *commandHandler.ProxyConfigHandler
	requestLogHandler  *commandHandler.RequestLogHandler
}

// NewCommand .
func NewCommand(
	proxyConfigHandler *commandHandler.ProxyConfigHandler,
	requestLogHandler *commandHandler.RequestLogHandler,
) *Command {
	return &Command{
		proxyConfigHandler: proxyConfigHandler,
		requestLogHandler:  requestLogHandler,
	}
}

// run builds the dependency graph for one subcommand and tears it down after.
func run(newCmd func() (*Command, func(), error), fn func(*Command) error) error {
	command, cleanup, err := newCmd()
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(command)
}

func Register(rootCmd *cobra.Command, newCmd func() (*Command, func(), error)) {
	configCmd := &cobra.Command{Use: "config", Short: "manage proxy configs"}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "print every proxy config",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(newCmd, func(c *Command) error {
					return c.proxyConfigHandler.List(cmd, args)
				})
			},
		},
		&cobra.Command{
			Use:   "refresh-token <id>",
			Short: "rotate the bearer token of a proxy config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(newCmd, func(c *Command) error {
					return c.proxyConfigHandler.RefreshToken(cmd, args)
				})
			},
		},
	)

	var days int
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "delete request logs older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(newCmd, func(c *Command) error {
				return c.requestLogHandler.Prune(cmd, days)
			})
		},
	}
	pruneCmd.Flags().IntVar(&days, "days", 30, "retention in days")
	logsCmd := &cobra.Command{Use: "logs", Short: "manage request logs"}
	logsCmd.AddCommand(pruneCmd)

	rootCmd.AddCommand(configCmd, logsCmd)
}
