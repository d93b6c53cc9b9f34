// Package cmdsetup holds the wiring shared by the finassist subcommands.
package cmdsetup

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/finassist/finassist/pkg/advisor"
	"github.com/finassist/finassist/pkg/completion"
	"github.com/finassist/finassist/pkg/config"
)

// BindFlags binds command flags onto viper keys. Subcommands share keys such
// as server_url, so binding happens when a command runs rather than when it
// is built.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %q: %w", name, err)
		}
	}
	return nil
}

// NewAdvisor builds the advisor from cfg. A missing credential is not fatal:
// it is logged here and every chat turn answers with the configuration error.
func NewAdvisor(cfg config.Config, logger *zap.Logger) (*advisor.Advisor, error) {
	profile := advisor.DefaultProfile()
	if cfg.Profile != "" {
		p, err := advisor.LoadProfile(cfg.Profile)
		if err != nil {
			return nil, err
		}
		profile = p
		logger.Info("loaded advisor profile",
			zap.String("path", cfg.Profile),
			zap.String("model", profile.Model),
		)
	}

	var completer completion.Completer
	oc, err := completion.NewOpenAI(completion.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
	}, logger)
	switch {
	case errors.Is(err, completion.ErrMissingAPIKey):
		logger.Warn(config.APIKeyEnv + " is not set, chat requests will fail until it is configured")
	case err != nil:
		return nil, fmt.Errorf("could not create completion client: %w", err)
	default:
		completer = oc
	}

	return advisor.New(completer, profile, logger), nil
}

// WatchProfile reloads the advisor profile whenever the file at path changes.
// It is a no-op when path is empty. The returned stop function is always
// safe to call.
func WatchProfile(ctx context.Context, path string, a *advisor.Advisor, logger *zap.Logger) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	w, err := advisor.NewProfileWatcher(path, a, logger)
	if err != nil {
		return nil, fmt.Errorf("could not watch profile %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	return func() {
		cancel()
		_ = w.Close()
		<-done
	}, nil
}
