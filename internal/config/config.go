package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel     string
	FeeBPS       uint64
	RPCURL       string
	PGDSN        string
	Journal      string
	MaxRetries   int
	RetryBackoff time.Duration
	Parallelism  int
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the AMM_ prefix, e.g. AMM_FEE_BPS.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("fee-bps", uint64(30))
	v.SetDefault("journal", "./data/movements.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("parallelism", 8)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		LogLevel:     v.GetString("log-level"),
		FeeBPS:       v.GetUint64("fee-bps"),
		RPCURL:       v.GetString("rpc"),
		PGDSN:        v.GetString("pg-dsn"),
		Journal:      v.GetString("journal"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Parallelism:  v.GetInt("parallelism"),
	}
	if cfg.FeeBPS >= 10_000 {
		return Config{}, fmt.Errorf("fee-bps must be below 10000, got %d", cfg.FeeBPS)
	}
	return cfg, nil
}
