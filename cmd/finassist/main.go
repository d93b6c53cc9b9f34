package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/finassist/finassist/cmd/finassist/ask"
	chatcmder "github.com/finassist/finassist/cmd/finassist/chat"
	mcpcmder "github.com/finassist/finassist/cmd/finassist/mcp"
	servecmder "github.com/finassist/finassist/cmd/finassist/serve"
	"github.com/finassist/finassist/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const rootLongDesc string = `finassist is an AI financial assistant.

It runs a stateless chat proxy in front of a hosted language model and
ships terminal and MCP clients for it. Settings come from flags,
FINASSIST_* environment variables, an optional .env file and an
optional config file, in that order of precedence.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	var configPath, envFile string

	cmd := &cobra.Command{
		Use:           "finassist",
		Short:         "AI financial assistant",
		Long:          rootLongDesc,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			return config.ReadFile(v, configPath)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a config file (yaml, toml or json)")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file, skipped when missing")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-format", "console", "Log format: console or json")
	_ = v.BindPFlag(config.KeyDebug, flags.Lookup("debug"))
	_ = v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	cmd.AddCommand(servecmder.NewServeCmd(v))
	cmd.AddCommand(askcmder.NewAskCmd(v))
	cmd.AddCommand(chatcmder.NewChatCmd(v))
	cmd.AddCommand(mcpcmder.NewMCPCmd(v, version))

	return cmd
}
