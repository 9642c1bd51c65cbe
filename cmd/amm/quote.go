package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"liquidityCore/internal/amm"
	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an operation against a pool snapshot without settling it",
	}
	addSnapshotFlags(quoteCmd.PersistentFlags())

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "LP shares minted for a deposit",
		RunE:  runQuoteDeposit,
	}
	depositCmd.Flags().Uint64("amount-a", 0, "raw amount of token A")
	depositCmd.Flags().Uint64("amount-b", 0, "raw amount of token B")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Token amounts returned for burning LP shares",
		RunE:  runQuoteWithdraw,
	}
	withdrawCmd.Flags().Uint64("lp-amount", 0, "raw LP amount to burn")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Output amount of a swap",
		RunE:  runQuoteSwap,
	}
	swapCmd.Flags().Uint64("amount-in", 0, "raw input amount")
	swapCmd.Flags().String("direction", "a_to_b", "swap direction (a_to_b, b_to_a)")

	quoteCmd.AddCommand(depositCmd, withdrawCmd, swapCmd)
	return quoteCmd
}

func addSnapshotFlags(flags *pflag.FlagSet) {
	flags.String("snapshot", "", "pool snapshot JSON file (overrides the reserve flags)")
	flags.String("token-a", "", "token A address (optional)")
	flags.String("token-b", "", "token B address (optional)")
	flags.Uint64("reserve-a", 0, "raw reserve of token A")
	flags.Uint64("reserve-b", 0, "raw reserve of token B")
	flags.Uint8("decimals-a", 0, "decimals of token A")
	flags.Uint8("decimals-b", 0, "decimals of token B")
	flags.Uint64("lp-supply", 0, "raw LP supply")
	flags.Uint8("lp-decimals", 0, "decimals of the LP share")
}

func snapshotFromFlags(flags *pflag.FlagSet) (model.PoolSnapshot, error) {
	if path, _ := flags.GetString("snapshot"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("read snapshot: %w", err)
		}
		var snap model.PoolSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
		}
		return snap, nil
	}

	var snap model.PoolSnapshot
	snap.ReserveA, _ = flags.GetUint64("reserve-a")
	snap.ReserveB, _ = flags.GetUint64("reserve-b")
	snap.DecimalsA, _ = flags.GetUint8("decimals-a")
	snap.DecimalsB, _ = flags.GetUint8("decimals-b")
	snap.LPSupply, _ = flags.GetUint64("lp-supply")
	snap.LPDecimals, _ = flags.GetUint8("lp-decimals")

	tokenA, _ := flags.GetString("token-a")
	tokenB, _ := flags.GetString("token-b")
	if tokenA != "" || tokenB != "" {
		var err error
		if snap.TokenA, err = poolkey.ParseToken(tokenA); err != nil {
			return model.PoolSnapshot{}, err
		}
		if snap.TokenB, err = poolkey.ParseToken(tokenB); err != nil {
			return model.PoolSnapshot{}, err
		}
	}
	return snap, nil
}

type depositQuoteOutput struct {
	Request       model.DepositRequest `json:"request"`
	StateBefore   model.PoolState      `json:"state_before"`
	SnapshotAfter model.SnapshotView   `json:"snapshot_after"`
	amm.DepositQuote
	LPDisplay string `json:"lp_display"`
}

func runQuoteDeposit(cmd *cobra.Command, _ []string) error {
	snap, err := snapshotFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	var req model.DepositRequest
	req.AmountA, _ = cmd.Flags().GetUint64("amount-a")
	req.AmountB, _ = cmd.Flags().GetUint64("amount-b")

	state, err := amm.StateOf(snap)
	if err != nil {
		return err
	}
	q, err := amm.QuoteDeposit(snap, req)
	if err != nil {
		return err
	}
	next := snap
	if q.LPAmount > 0 {
		if next, err = amm.ApplyDeposit(snap, req, q.LPAmount); err != nil {
			return err
		}
	}
	return writeJSON(cmd.OutOrStdout(), depositQuoteOutput{
		Request:       req,
		StateBefore:   state,
		SnapshotAfter: next.View(),
		DepositQuote:  q,
		LPDisplay:     fixedpoint.FormatUint64(q.LPAmount, snap.LPDecimals),
	})
}

type withdrawQuoteOutput struct {
	LPAmount uint64 `json:"lp_amount"`
	AmountA  uint64 `json:"amount_a"`
	AmountB  uint64 `json:"amount_b"`
}

func runQuoteWithdraw(cmd *cobra.Command, _ []string) error {
	snap, err := snapshotFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	lpAmount, _ := cmd.Flags().GetUint64("lp-amount")
	a, b, err := amm.RedeemAmounts(snap, model.WithdrawalRequest{LPAmount: lpAmount})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), withdrawQuoteOutput{LPAmount: lpAmount, AmountA: a, AmountB: b})
}

func runQuoteSwap(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := snapshotFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	fee, err := amm.ParseFee(cfg.FeeBPS)
	if err != nil {
		return err
	}
	dirText, _ := cmd.Flags().GetString("direction")
	dir, err := model.ParseDirection(dirText)
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")

	q, err := amm.QuoteSwap(snap, model.SwapRequest{AmountIn: amountIn, Direction: dir}, fee)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), q)
}
