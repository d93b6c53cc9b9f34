// Package config loads finassist settings from defaults, an optional config
// file, an optional .env file and the environment, in increasing precedence.
// Command-line flags bound onto the same viper keys win over all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/finassist/finassist/pkg/completion"
	"github.com/finassist/finassist/pkg/logger"
)

// EnvPrefix is prepended to every environment variable except the API key.
const EnvPrefix = "FINASSIST"

// APIKeyEnv is the environment variable holding the completion credential.
const APIKeyEnv = "GROQ_API_KEY"

// Viper keys.
const (
	KeyListen          = "listen"
	KeyDebug           = "debug"
	KeyLogFormat       = "log_format"
	KeyAPIKey          = "groq_api_key"
	KeyUpstreamURL     = "upstream_url"
	KeyUpstreamTimeout = "upstream_timeout"
	KeyProfile         = "profile"
	KeyRateLimitRPS    = "rate_limit.rps"
	KeyRateLimitBurst  = "rate_limit.burst"
	KeyServerURL       = "server_url"
)

// Config is the resolved configuration for every finassist command.
type Config struct {
	Listen          string        `mapstructure:"listen"`
	Debug           bool          `mapstructure:"debug"`
	LogFormat       string        `mapstructure:"log_format"`
	APIKey          string        `mapstructure:"groq_api_key"`
	UpstreamURL     string        `mapstructure:"upstream_url"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	Profile         string        `mapstructure:"profile"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
	ServerURL       string        `mapstructure:"server_url"`
}

// RateLimit configures the per-client limiter on the chat endpoint.
// RPS <= 0 disables it.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyLogFormat, string(logger.FormatConsole))
	v.SetDefault(KeyUpstreamURL, completion.DefaultBaseURL)
	v.SetDefault(KeyUpstreamTimeout, time.Duration(0))
	v.SetDefault(KeyProfile, "")
	v.SetDefault(KeyRateLimitRPS, 0.0)
	v.SetDefault(KeyRateLimitBurst, 5)
	v.SetDefault(KeyServerURL, "http://localhost:8080")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credential keeps its conventional unprefixed name.
	_ = v.BindEnv(KeyAPIKey, APIKeyEnv, EnvPrefix+"_"+APIKeyEnv)

	return v
}

// ReadFile merges a config file (any format viper understands) into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// Load resolves the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.UpstreamTimeout < 0 {
		return Config{}, fmt.Errorf("%s must not be negative", KeyUpstreamTimeout)
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst <= 0 {
		return Config{}, fmt.Errorf("%s must be positive when rate limiting is enabled", KeyRateLimitBurst)
	}

	return cfg, nil
}
