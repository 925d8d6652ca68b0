package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"swapEngine/internal/engine"
	"swapEngine/internal/model"
)

type addSteps struct{ *engine.AddLiquidity }

type removeSteps struct{ *engine.RemoveLiquidity }

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	tokenA, err := resolveToken(ctx, e, flagString(cmd, "token-a"), "token-a")
	if err != nil {
		return err
	}
	tokenB, err := resolveToken(ctx, e, flagString(cmd, "token-b"), "token-b")
	if err != nil {
		return err
	}
	amountA := flagString(cmd, "amount-a")
	amountB := flagString(cmd, "amount-b")
	if amountA == "" && amountB == "" {
		return fmt.Errorf("amount-a or amount-b is required")
	}

	a := engine.NewAddLiquidity(e.client, e.oracle, e.tracker, e.activity, e.contracts, e.settings, e.client.Account(), e.logger)
	a.SetTokens(tokenA, tokenB)
	if err := a.Recompute(ctx); err != nil {
		return err
	}

	if amountA != "" {
		a.SetAmount(engine.FieldA, amountA)
	}
	if amountB != "" && (amountA == "" || a.NewPool()) {
		a.SetAmount(engine.FieldB, amountB)
	}
	// second pass picks up the allowances for the now-known amounts
	if err := a.Recompute(ctx); err != nil {
		return err
	}

	quote := a.Quote()
	if quote == nil {
		if a.NewPool() {
			return fmt.Errorf("a new pool needs both amount-a and amount-b")
		}
		return fmt.Errorf("no deposit quote available")
	}
	if quote.NewPool {
		fmt.Printf("pool does not exist yet: this deposit creates it at the entered ratio\n")
	}

	if err := settle(ctx, e.logger, addSteps{a}); err != nil {
		return err
	}

	fmt.Printf("added %s %s + %s %s (~%.4f%% of pool)\n",
		model.FormatAmount(quote.AmountA, tokenA.Decimals), tokenA.Symbol,
		model.FormatAmount(quote.AmountB, tokenB.Decimals), tokenB.Symbol,
		quote.ShareOfPool)
	return nil
}

func runRemoveLiquidity(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	pairArg := flagString(cmd, "pair")
	if !common.IsHexAddress(pairArg) {
		return fmt.Errorf("pair address is required")
	}
	percent, _ := cmd.Flags().GetInt64("percent")
	if percent <= 0 || percent > 100 {
		return fmt.Errorf("percent must be between 1 and 100")
	}

	pair := common.HexToAddress(pairArg)
	pool, err := e.registry.Pool(ctx, pair)
	if err != nil {
		return err
	}
	balance, err := e.oracle.LPBalance(ctx, pair, e.client.Account())
	if err != nil {
		return err
	}
	if balance.Sign() <= 0 {
		return fmt.Errorf("no position held in %s", pair.Hex())
	}

	r := engine.NewRemoveLiquidity(e.client, e.oracle, e.tracker, e.activity, e.contracts, e.settings, e.client.Account(), nil, e.logger)
	r.SetPosition(&model.UserPosition{Pool: pool, Liquidity: balance})
	r.SetPercentage(percent)
	if err := r.Recompute(ctx); err != nil {
		return err
	}

	quote := r.Quote()
	if quote == nil {
		return fmt.Errorf("no withdrawal quote available")
	}

	if err := settle(ctx, e.logger, removeSteps{r}); err != nil {
		return err
	}

	fmt.Printf("removed %s LP for at least %s %s + %s %s\n",
		quote.Liquidity,
		model.FormatAmount(quote.MinAmount0, pool.Token0.Decimals), pool.Token0.Symbol,
		model.FormatAmount(quote.MinAmount1, pool.Token1.Decimals), pool.Token1.Symbol)
	return nil
}

func runPositions(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	account := e.client.Account()
	if account == (common.Address{}) {
		return fmt.Errorf("private-key is required to resolve the account")
	}

	positions := engine.NewPositions(e.registry, e.oracle, account, e.logger)
	if err := positions.Refresh(ctx); err != nil {
		return err
	}

	held := positions.List()
	if len(held) == 0 {
		fmt.Printf("no positions for %s\n", account.Hex())
		return nil
	}

	for _, position := range held {
		fmt.Printf("%s  %s-%s  %s LP (%.4f%%)  =  %s %s + %s %s\n",
			position.Pool.Address.Hex(),
			position.Pool.Token0.Symbol, position.Pool.Token1.Symbol,
			position.Liquidity, position.Share,
			model.FormatAmount(position.Token0Amount, position.Pool.Token0.Decimals), position.Pool.Token0.Symbol,
			model.FormatAmount(position.Token1Amount, position.Pool.Token1.Decimals), position.Pool.Token1.Symbol)
	}
	return nil
}

func runActivity(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if e.pg == nil {
		return fmt.Errorf("pg-dsn is required for the activity command")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	txs, err := e.pg.RecentTxs(ctx, limit)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		settled := tx.SettledAt
		if settled == "" {
			settled = "-"
		}
		fmt.Printf("%-10s  %-9s  %s  %s  %s\n", tx.Kind, tx.Status, tx.Hash, tx.SubmittedAt, settled)
	}
	return nil
}
