package mcpcmder

import (
	"context"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/finassist/finassist/cmd/finassist/cmdsetup"
	"github.com/finassist/finassist/pkg/config"
	"github.com/finassist/finassist/pkg/logger"
	"github.com/finassist/finassist/pkg/mcpserver"
)

const mcpLongDesc string = `Serve the advisor as an MCP tool over stdio.

Registers the ask_financial_advisor tool, which takes a message and
the prior turns and returns the reply with the updated history. The
advisor runs in this process, so GROQ_API_KEY must be set here. Logs
go to stderr; stdout carries the protocol.

Example host configuration:
  {"command": "finassist", "args": ["mcp"]}`

const mcpShortDesc string = "Serve the advisor over MCP stdio"

type mcpCommander struct {
	v       *viper.Viper
	version string

	// transport overrides stdio.
	transport sdkmcp.Transport
}

func NewMCPCmd(v *viper.Viper, version string) *cobra.Command {
	return newMCPCmd(&mcpCommander{v: v, version: version})
}

func newMCPCmd(cmder *mcpCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdsetup.BindFlags(cmder.v, cmd.Flags(), map[string]string{
				config.KeyProfile: "profile",
			}); err != nil {
				return err
			}
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringP("profile", "p", "", "Path to an advisor profile (TOML), reloaded on change")

	return cmd
}

func (c *mcpCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}

	log, err := logger.NewStderrLogger(cfg.Debug, logger.Format(cfg.LogFormat))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := cmdsetup.NewAdvisor(cfg, log)
	if err != nil {
		return err
	}

	stopWatch, err := cmdsetup.WatchProfile(ctx, cfg.Profile, a, log)
	if err != nil {
		return err
	}
	defer stopWatch()

	log.Info("mcp server starting", zap.String("version", c.version))

	server := mcpserver.New(a, c.version, log)
	if c.transport != nil {
		err = server.Serve(ctx, c.transport)
	} else {
		err = server.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}
