package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCore/internal/amm"
	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
	"liquidityCore/internal/settlement"
	"liquidityCore/internal/storage"
	"liquidityCore/internal/storage/postgres"
)

// journalPostgres routes movements to the pool_movements table.
const journalPostgres = "postgres"

func newSettleCmd() *cobra.Command {
	settleCmd := &cobra.Command{
		Use:   "settle",
		Short: "Apply operations to pools stored in Postgres",
	}
	settleCmd.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	settleCmd.PersistentFlags().String("journal", "./data/movements.jsonl", `movement journal JSONL path, or "postgres"`)
	settleCmd.PersistentFlags().String("account", "", "account the movements are attributed to")

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Register an empty pool for a token pair",
		RunE:  runSettleOpen,
	}
	addPairFlags(openCmd)
	openCmd.Flags().Uint8("decimals-x", 0, "decimals of token x")
	openCmd.Flags().Uint8("decimals-y", 0, "decimals of token y")
	openCmd.Flags().Uint8("lp-decimals", 9, "decimals of the LP share")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit both tokens and mint LP shares",
		RunE:  runSettleDeposit,
	}
	addPairFlags(depositCmd)
	depositCmd.Flags().Uint64("amount-x", 0, "raw amount of token x")
	depositCmd.Flags().Uint64("amount-y", 0, "raw amount of token y")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn LP shares for the underlying tokens",
		RunE:  runSettleWithdraw,
	}
	addPairFlags(withdrawCmd)
	withdrawCmd.Flags().Uint64("lp-amount", 0, "raw LP amount to burn")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Sell token x for token y",
		RunE:  runSettleSwap,
	}
	addPairFlags(swapCmd)
	swapCmd.Flags().Uint64("amount-in", 0, "raw amount of token x to sell")

	batchCmd := &cobra.Command{
		Use:   "batch <ops.json>",
		Short: "Settle a JSON array of operations, pools in parallel",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettleBatch,
	}
	batchCmd.Flags().Int("parallelism", 8, "pools settled concurrently")

	movementsCmd := &cobra.Command{
		Use:   "movements",
		Short: "List movements journaled in Postgres for a pool",
		RunE:  runSettleMovements,
	}
	addPairFlags(movementsCmd)

	settleCmd.AddCommand(openCmd, depositCmd, withdrawCmd, swapCmd, batchCmd, movementsCmd)
	return settleCmd
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().String("token-x", "", "first token (for swaps, the token sold)")
	cmd.Flags().String("token-y", "", "second token")
}

// pairFromFlags returns the pool key and whether token-x is the pool's token A.
func pairFromFlags(cmd *cobra.Command) (poolkey.Key, bool, error) {
	x, _ := cmd.Flags().GetString("token-x")
	y, _ := cmd.Flags().GetString("token-y")
	tokenX, err := poolkey.ParseToken(x)
	if err != nil {
		return poolkey.Key{}, false, fmt.Errorf("--token-x: %w", err)
	}
	tokenY, err := poolkey.ParseToken(y)
	if err != nil {
		return poolkey.Key{}, false, fmt.Errorf("--token-y: %w", err)
	}
	key, err := poolkey.Canonicalize(tokenX, tokenY)
	if err != nil {
		return poolkey.Key{}, false, err
	}
	return key, key.TokenA == tokenX, nil
}

type settleEnv struct {
	logger  *zap.Logger
	engine  *settlement.Engine
	history storage.MovementReader
	account string
	close   func()
}

func openSettleEnv(ctx context.Context, cmd *cobra.Command) (*settleEnv, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	fee, err := amm.ParseFee(cfg.FeeBPS)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		logger.Sync()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	// A nil journal keeps movements in the pool's own transaction.
	var journal storage.Journal
	if cfg.Journal != journalPostgres {
		journal = storage.NewJsonlJournal(cfg.Journal)
	}

	engine, err := settlement.NewEngine(settlement.EngineConfig{
		Fee:         fee,
		Parallelism: cfg.Parallelism,
	}, store, journal, logger)
	if err != nil {
		store.Close()
		logger.Sync()
		return nil, err
	}

	account, _ := cmd.Flags().GetString("account")
	logger.Info("settlement start",
		zap.String("journal", cfg.Journal),
		zap.Stringer("fee", fee),
		zap.String("account", account),
	)
	return &settleEnv{
		logger:  logger,
		engine:  engine,
		history: store,
		account: account,
		close: func() {
			store.Close()
			logger.Sync()
		},
	}, nil
}

func withSettleEnv(cmd *cobra.Command, fn func(ctx context.Context, env *settleEnv) (interface{}, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openSettleEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	out, err := fn(ctx, env)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func runSettleOpen(cmd *cobra.Command, _ []string) error {
	return withSettleEnv(cmd, func(ctx context.Context, env *settleEnv) (interface{}, error) {
		x, _ := cmd.Flags().GetString("token-x")
		y, _ := cmd.Flags().GetString("token-y")
		tokenX, err := poolkey.ParseToken(x)
		if err != nil {
			return nil, fmt.Errorf("--token-x: %w", err)
		}
		tokenY, err := poolkey.ParseToken(y)
		if err != nil {
			return nil, fmt.Errorf("--token-y: %w", err)
		}
		decimalsX, _ := cmd.Flags().GetUint8("decimals-x")
		decimalsY, _ := cmd.Flags().GetUint8("decimals-y")
		lpDecimals, _ := cmd.Flags().GetUint8("lp-decimals")
		return env.engine.OpenPool(ctx, tokenX, tokenY, decimalsX, decimalsY, lpDecimals)
	})
}

func runSettleDeposit(cmd *cobra.Command, _ []string) error {
	return withSettleEnv(cmd, func(ctx context.Context, env *settleEnv) (interface{}, error) {
		key, xIsA, err := pairFromFlags(cmd)
		if err != nil {
			return nil, err
		}
		amountX, _ := cmd.Flags().GetUint64("amount-x")
		amountY, _ := cmd.Flags().GetUint64("amount-y")
		req := model.DepositRequest{AmountA: amountX, AmountB: amountY}
		if !xIsA {
			req.AmountA, req.AmountB = amountY, amountX
		}
		return env.engine.Deposit(ctx, key, env.account, req)
	})
}

func runSettleWithdraw(cmd *cobra.Command, _ []string) error {
	return withSettleEnv(cmd, func(ctx context.Context, env *settleEnv) (interface{}, error) {
		key, _, err := pairFromFlags(cmd)
		if err != nil {
			return nil, err
		}
		lpAmount, _ := cmd.Flags().GetUint64("lp-amount")
		return env.engine.Withdraw(ctx, key, env.account, model.WithdrawalRequest{LPAmount: lpAmount})
	})
}

func runSettleSwap(cmd *cobra.Command, _ []string) error {
	return withSettleEnv(cmd, func(ctx context.Context, env *settleEnv) (interface{}, error) {
		key, xIsA, err := pairFromFlags(cmd)
		if err != nil {
			return nil, err
		}
		amountIn, _ := cmd.Flags().GetUint64("amount-in")
		dir := model.AToB
		if !xIsA {
			dir = model.BToA
		}
		return env.engine.Swap(ctx, key, env.account, model.SwapRequest{AmountIn: amountIn, Direction: dir})
	})
}

func runSettleMovements(cmd *cobra.Command, _ []string) error {
	return withSettleEnv(cmd, func(ctx context.Context, env *settleEnv) (interface{}, error) {
		key, _, err := pairFromFlags(cmd)
		if err != nil {
			return nil, err
		}
		movements, err := env.history.Movements(ctx, key)
		if err != nil {
			return nil, err
		}
		if movements == nil {
			movements = []model.Movement{}
		}
		return movements, nil
	})
}

type batchResult struct {
	settlement.Result
	Error string `json:"error,omitempty"`
}

func runSettleBatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read operations: %w", err)
	}
	var ops []settlement.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return fmt.Errorf("decode operations: %w", err)
	}
	// The pool id is always derived from the tokens.
	for i := range ops {
		key, err := poolkey.Canonicalize(ops[i].Pool.TokenA, ops[i].Pool.TokenB)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if key.TokenA != ops[i].Pool.TokenA {
			return fmt.Errorf("operation %d: %w", i, poolkey.ErrUnorderedPair)
		}
		ops[i].Pool = key
	}

	return withSettleEnv(cmd, func(ctx context.Context, env *settleEnv) (interface{}, error) {
		results := env.engine.SettleBatch(ctx, ops)
		out := make([]batchResult, len(results))
		for i, r := range results {
			out[i] = batchResult{Result: r}
			if r.Err != nil {
				out[i].Error = r.Err.Error()
			}
		}
		return out, nil
	})
}
