package servecmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/finassist/finassist/cmd/finassist/cmdsetup"
	"github.com/finassist/finassist/pkg/config"
	"github.com/finassist/finassist/pkg/logger"
	"github.com/finassist/finassist/proxy"
)

const serveLongDesc string = `Run the chat proxy.

Serves POST /api/chat, forwarding each turn together with the caller's
history to the completion API. The server keeps no conversation state.
GROQ_API_KEY must be set for chat requests to succeed.

Examples:
  finassist serve
  finassist serve --listen :9000 --profile advisor.toml
  FINASSIST_RATE_LIMIT_RPS=2 finassist serve`

const serveShortDesc string = "Run the chat proxy"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	v *viper.Viper
}

func NewServeCmd(v *viper.Viper) *cobra.Command {
	cmder := &serveCommander{v: v}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdsetup.BindFlags(v, cmd.Flags(), map[string]string{
				config.KeyListen:          "listen",
				config.KeyProfile:         "profile",
				config.KeyUpstreamURL:     "upstream",
				config.KeyUpstreamTimeout: "upstream-timeout",
				config.KeyRateLimitRPS:    "rate-limit-rps",
				config.KeyRateLimitBurst:  "rate-limit-burst",
			}); err != nil {
				return err
			}
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
	cmd.Flags().StringP("profile", "p", "", "Path to an advisor profile (TOML), reloaded on change")
	cmd.Flags().String("upstream", "", "Completion API base URL (default Groq)")
	cmd.Flags().Duration("upstream-timeout", 0, "Timeout for one completion call (0 waits indefinitely)")
	cmd.Flags().Float64("rate-limit-rps", 0, "Chat requests per second per client IP (0 disables)")
	cmd.Flags().Int("rate-limit-burst", 5, "Burst size for the per-IP limiter")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Debug, logger.Format(cfg.LogFormat))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("finassist proxy starting",
		zap.String("listen", cfg.Listen),
		zap.String("upstream", cfg.UpstreamURL),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
		zap.Bool("debug", cfg.Debug),
	)

	a, err := cmdsetup.NewAdvisor(cfg, log)
	if err != nil {
		return err
	}

	stopWatch, err := cmdsetup.WatchProfile(ctx, cfg.Profile, a, log)
	if err != nil {
		return err
	}
	defer stopWatch()

	p := proxy.New(proxy.Config{
		ListenAddr: cfg.Listen,
		RateLimit: proxy.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
	}, a, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("proxy server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy shutdown failed: %w", err)
	}

	return nil
}
