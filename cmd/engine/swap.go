package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapEngine/internal/engine"
	"swapEngine/internal/model"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	tokenIn, err := resolveToken(ctx, e, flagString(cmd, "token-in"), "token-in")
	if err != nil {
		return err
	}
	tokenOut, err := resolveToken(ctx, e, flagString(cmd, "token-out"), "token-out")
	if err != nil {
		return err
	}
	amount := flagString(cmd, "amount")
	if amount == "" {
		return fmt.Errorf("amount is required")
	}

	s := engine.NewSwap(e.client, e.oracle, e.tracker, e.activity, e.contracts, e.settings, e.client.Account(), e.logger)
	s.SetTokens(tokenIn, tokenOut)
	s.SetAmount(amount)
	if err := s.Recompute(ctx); err != nil {
		return err
	}

	quote := s.Quote()
	if quote == nil {
		return fmt.Errorf("no quote: pool is missing or has insufficient liquidity")
	}

	fmt.Printf("swap %s %s -> %s %s\n",
		model.FormatAmount(quote.AmountIn, tokenIn.Decimals), tokenIn.Symbol,
		model.FormatAmount(quote.AmountOut, tokenOut.Decimals), tokenOut.Symbol)
	fmt.Printf("  minimum received: %s %s\n", model.FormatAmount(quote.MinimumReceived, tokenOut.Decimals), tokenOut.Symbol)
	fmt.Printf("  price impact:     %.4f%%\n", quote.PriceImpact)
	fmt.Printf("  fee:              %s %s\n", model.FormatAmount(quote.Fee, tokenIn.Decimals), tokenIn.Symbol)
	return nil
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	tokenIn, err := resolveToken(ctx, e, flagString(cmd, "token-in"), "token-in")
	if err != nil {
		return err
	}
	tokenOut, err := resolveToken(ctx, e, flagString(cmd, "token-out"), "token-out")
	if err != nil {
		return err
	}
	amount := flagString(cmd, "amount")
	if amount == "" {
		return fmt.Errorf("amount is required")
	}

	s := engine.NewSwap(e.client, e.oracle, e.tracker, e.activity, e.contracts, e.settings, e.client.Account(), e.logger)
	s.SetTokens(tokenIn, tokenOut)
	s.SetAmount(amount)
	if err := s.Recompute(ctx); err != nil {
		return err
	}

	if err := settle(ctx, e.logger, swapSteps{s}); err != nil {
		return err
	}

	quote := s.Quote()
	fmt.Printf("swapped %s %s for at least %s %s\n",
		model.FormatAmount(quote.AmountIn, tokenIn.Decimals), tokenIn.Symbol,
		model.FormatAmount(quote.MinimumReceived, tokenOut.Decimals), tokenOut.Symbol)
	return nil
}

// stepper is the slice of an orchestrator the settle loop drives.
type stepper interface {
	Action() engine.Action
	Approve(ctx context.Context) (*model.PendingTx, error)
	Execute(ctx context.Context) (*model.PendingTx, error)
	Await(ctx context.Context, tx *model.PendingTx) error
}

type swapSteps struct{ *engine.Swap }

// settle drives an orchestrator to completion: approvals first, then the
// submission. Each approval must open the gate further; a gate that stops
// advancing aborts instead of looping.
func settle(ctx context.Context, logger *zap.Logger, s stepper) error {
	const maxApprovals = 3

	for approvals := 0; ; approvals++ {
		action := s.Action()
		switch {
		case action.Kind == engine.ActionConnect:
			return fmt.Errorf("private-key is required for writes")
		case action.Kind == engine.ActionApprove && action.Enabled:
			if approvals >= maxApprovals {
				return fmt.Errorf("approval gate did not clear after %d approvals", approvals)
			}
			logger.Info("approving", zap.String("action", action.Label))
			tx, err := s.Approve(ctx)
			if err != nil {
				return err
			}
			if err := s.Await(ctx, tx); err != nil {
				return err
			}
		case action.Kind == engine.ActionSubmit && action.Enabled:
			logger.Info("submitting", zap.String("action", action.Label))
			tx, err := s.Execute(ctx)
			if err != nil {
				return err
			}
			return s.Await(ctx, tx)
		default:
			return fmt.Errorf("cannot proceed: %s", action.Label)
		}
	}
}

func flagString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
