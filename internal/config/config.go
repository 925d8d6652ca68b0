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
	RPCURL        string
	PrivateKey    string
	Factory       string
	Router        string
	WrappedNative string

	SlippageBps     int64
	DeadlineMinutes int64

	MaxRetries       int
	RetryBackoff     time.Duration
	AllowanceRetries int
	AllowanceBackoff time.Duration
	ReceiptInterval  time.Duration
	ReceiptTimeout   time.Duration

	Out      string
	PgDSN    string
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("slippage-bps", int64(50))
	v.SetDefault("deadline-minutes", int64(20))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("allowance-retries", 3)
	v.SetDefault("allowance-backoff", 500*time.Millisecond)
	v.SetDefault("receipt-interval", time.Second)
	v.SetDefault("receipt-timeout", 3*time.Minute)
	v.SetDefault("out", "./data/activity.jsonl")
	v.SetDefault("log-level", "info")

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
		RPCURL:           v.GetString("rpc"),
		PrivateKey:       v.GetString("private-key"),
		Factory:          v.GetString("factory"),
		Router:           v.GetString("router"),
		WrappedNative:    v.GetString("wrapped-native"),
		SlippageBps:      v.GetInt64("slippage-bps"),
		DeadlineMinutes:  v.GetInt64("deadline-minutes"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		AllowanceRetries: v.GetInt("allowance-retries"),
		AllowanceBackoff: v.GetDuration("allowance-backoff"),
		ReceiptInterval:  v.GetDuration("receipt-interval"),
		ReceiptTimeout:   v.GetDuration("receipt-timeout"),
		Out:              v.GetString("out"),
		PgDSN:            v.GetString("pg-dsn"),
		LogLevel:         v.GetString("log-level"),
	}

	if cfg.SlippageBps < 0 || cfg.SlippageBps > 10000 {
		return Config{}, fmt.Errorf("slippage-bps must be between 0 and 10000")
	}

	return cfg, nil
}
