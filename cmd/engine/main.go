package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapEngine/internal/chain"
	"swapEngine/internal/config"
	"swapEngine/internal/dex"
	"swapEngine/internal/engine"
	"swapEngine/internal/model"
	"swapEngine/internal/storage"
	"swapEngine/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "AMM quoting and liquidity settlement engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote an exact-input swap without submitting",
		RunE:  runQuote,
	}
	addEngineFlags(quoteCmd)
	quoteCmd.Flags().String("token-in", "", "input token address, or 'native'")
	quoteCmd.Flags().String("token-out", "", "output token address, or 'native'")
	quoteCmd.Flags().String("amount", "", "input amount in token units")
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute an exact-input swap, approving first when needed",
		RunE:  runSwap,
	}
	addEngineFlags(swapCmd)
	swapCmd.Flags().String("token-in", "", "input token address, or 'native'")
	swapCmd.Flags().String("token-out", "", "output token address, or 'native'")
	swapCmd.Flags().String("amount", "", "input amount in token units")
	root.AddCommand(swapCmd)

	addCmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit both sides of a pair, creating the pool if missing",
		RunE:  runAddLiquidity,
	}
	addEngineFlags(addCmd)
	addCmd.Flags().String("token-a", "", "first token address, or 'native'")
	addCmd.Flags().String("token-b", "", "second token address, or 'native'")
	addCmd.Flags().String("amount-a", "", "first token amount")
	addCmd.Flags().String("amount-b", "", "second token amount (required for a new pool)")
	root.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Withdraw a percentage of a held LP position",
		RunE:  runRemoveLiquidity,
	}
	addEngineFlags(removeCmd)
	removeCmd.Flags().String("pair", "", "pair contract address")
	removeCmd.Flags().Int64("percent", 0, "percentage of the position to withdraw (1-100)")
	root.AddCommand(removeCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List the account's LP positions across all pools",
		RunE:  runPositions,
	}
	addEngineFlags(positionsCmd)
	root.AddCommand(positionsCmd)

	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent transaction activity from Postgres",
		RunE:  runActivity,
	}
	addEngineFlags(activityCmd)
	activityCmd.Flags().Int("limit", 50, "maximum rows to show")
	root.AddCommand(activityCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("private-key", "", "hex signing key (omit for read-only commands)")
	cmd.Flags().String("factory", "", "V2 factory address")
	cmd.Flags().String("router", "", "V2 router address")
	cmd.Flags().String("wrapped-native", "", "wrapped native token address")
	cmd.Flags().Int64("slippage-bps", 50, "slippage tolerance in basis points")
	cmd.Flags().Int64("deadline-minutes", 20, "transaction deadline in minutes")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for reads")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Int("allowance-retries", 3, "post-approval allowance refresh attempts")
	cmd.Flags().Duration("allowance-backoff", 500*time.Millisecond, "initial allowance refresh backoff")
	cmd.Flags().Duration("receipt-interval", time.Second, "receipt polling interval")
	cmd.Flags().Duration("receipt-timeout", 3*time.Minute, "receipt polling timeout")
	cmd.Flags().String("out", "./data/activity.jsonl", "activity JSONL path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the activity log")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// env bundles everything a command needs against one RPC endpoint.
type env struct {
	cfg       config.Config
	logger    *zap.Logger
	client    *chain.Client
	oracle    *dex.Oracle
	tracker   *dex.Tracker
	registry  *dex.Registry
	activity  engine.Activity
	contracts engine.Contracts
	settings  engine.Settings
	pg        *postgres.Store
}

func (e *env) close() {
	if e.pg != nil {
		e.pg.Close()
	}
	if e.client != nil {
		e.client.Close()
	}
	if e.logger != nil {
		e.logger.Sync()
	}
}

func setup(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	contracts, err := parseContracts(cfg)
	if err != nil {
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		PrivateKey:      cfg.PrivateKey,
		ReceiptInterval: cfg.ReceiptInterval,
		ReceiptTimeout:  cfg.ReceiptTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	e := &env{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		oracle:    dex.NewOracle(client, contracts.Factory, contracts.WrappedNative, logger),
		tracker:   dex.NewTracker(client, cfg.AllowanceRetries, cfg.AllowanceBackoff, logger),
		registry:  dex.NewRegistry(client, contracts.Factory, logger),
		contracts: contracts,
		settings: engine.Settings{
			SlippageBps:     cfg.SlippageBps,
			DeadlineMinutes: cfg.DeadlineMinutes,
			MaxRetries:      cfg.MaxRetries,
			RetryBackoff:    cfg.RetryBackoff,
		},
	}

	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.pg = store
		e.activity = store
	} else {
		e.activity = storage.NewJsonlStorage(cfg.Out)
	}

	return e, nil
}

func parseContracts(cfg config.Config) (engine.Contracts, error) {
	var contracts engine.Contracts
	for _, addr := range []struct {
		name  string
		value string
		out   *common.Address
	}{
		{"factory", cfg.Factory, &contracts.Factory},
		{"router", cfg.Router, &contracts.Router},
		{"wrapped-native", cfg.WrappedNative, &contracts.WrappedNative},
	} {
		if !common.IsHexAddress(addr.value) {
			return engine.Contracts{}, fmt.Errorf("%s address is required", addr.name)
		}
		*addr.out = common.HexToAddress(addr.value)
	}
	return contracts, nil
}

// resolveToken turns a CLI token argument into a descriptor. The literal
// "native" selects the chain's native coin.
func resolveToken(ctx context.Context, e *env, input, flagName string) (model.Token, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.Token{}, fmt.Errorf("%s is required", flagName)
	}
	if strings.EqualFold(input, "native") {
		return model.Token{Address: model.NativeAddress, Symbol: "NATIVE", Decimals: 18}, nil
	}
	if !common.IsHexAddress(input) {
		return model.Token{}, fmt.Errorf("%s: invalid address %q", flagName, input)
	}
	return dex.FetchTokenMeta(ctx, e.client, common.HexToAddress(input), e.logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
