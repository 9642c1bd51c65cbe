// Package settlement applies valuations to stored pools. It reads a pool
// snapshot, prices the operation, writes the new snapshot and journals the
// resulting token movements as one step per pool.
package settlement

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityCore/internal/amm"
	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
	"liquidityCore/internal/storage"
)

// EngineConfig holds runtime settings for the engine.
type EngineConfig struct {
	Fee         amm.Fee
	Parallelism int
}

// Engine settles operations against a snapshot store.
type Engine struct {
	cfg     EngineConfig
	store   storage.SnapshotStore
	journal storage.Journal
	logger  *zap.Logger
	seq     atomic.Uint64
	now     func() time.Time
}

// WithdrawalResult is the settled outcome of a withdrawal.
type WithdrawalResult struct {
	LPAmount uint64 `json:"lp_amount"`
	AmountA  uint64 `json:"amount_a"`
	AmountB  uint64 `json:"amount_b"`
}

// NewEngine builds an Engine. A nil journal records movements through the
// store, in the same commit as the pool snapshot.
func NewEngine(cfg EngineConfig, store storage.SnapshotStore, journal storage.Journal, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("snapshot store is nil")
	}
	if err := cfg.Fee.Validate(); err != nil {
		return nil, err
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		store:   store,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// OpenPool registers an uninitialized pool for an unordered token pair. The
// decimals follow the tokens they were given with.
func (e *Engine) OpenPool(ctx context.Context, tokenX, tokenY common.Address, decimalsX, decimalsY, lpDecimals uint8) (poolkey.Key, error) {
	key, err := poolkey.Canonicalize(tokenX, tokenY)
	if err != nil {
		return poolkey.Key{}, err
	}
	snap := model.PoolSnapshot{
		TokenA:     key.TokenA,
		TokenB:     key.TokenB,
		DecimalsA:  decimalsX,
		DecimalsB:  decimalsY,
		LPDecimals: lpDecimals,
	}
	if key.TokenA != tokenX {
		snap.DecimalsA, snap.DecimalsB = decimalsY, decimalsX
	}
	if err := e.store.Create(ctx, key, snap); err != nil {
		return poolkey.Key{}, err
	}
	e.logger.Info("pool opened",
		zap.String("pool", key.String()),
		zap.String("token_a", key.TokenA.Hex()),
		zap.String("token_b", key.TokenB.Hex()),
	)
	return key, nil
}

// Snapshot returns the stored snapshot of a pool.
func (e *Engine) Snapshot(ctx context.Context, key poolkey.Key) (model.PoolSnapshot, error) {
	return e.store.Load(ctx, key)
}

// Deposit mints LP shares to account for the deposited amounts.
func (e *Engine) Deposit(ctx context.Context, key poolkey.Key, account string, req model.DepositRequest) (amm.DepositQuote, error) {
	var quote amm.DepositQuote
	err := e.store.Update(ctx, key, func(snap model.PoolSnapshot, txJournal storage.Journal) (model.PoolSnapshot, error) {
		q, err := amm.QuoteDeposit(snap, req)
		if err != nil {
			return snap, err
		}
		next, err := amm.ApplyDeposit(snap, req, q.LPAmount)
		if err != nil {
			return snap, err
		}
		op := e.newOp(key, "deposit", account)
		movements := op.collect(
			op.movement(snap.TokenA.Hex(), model.MovementDebit, req.AmountA),
			op.movement(snap.TokenB.Hex(), model.MovementDebit, req.AmountB),
			op.movement(lpToken(key), model.MovementMint, q.LPAmount),
		)
		if err := e.record(ctx, txJournal, movements); err != nil {
			return snap, err
		}
		quote = q
		return next, nil
	})
	if err != nil {
		e.logger.Warn("deposit rejected", zap.String("pool", key.String()), zap.String("account", account), zap.Error(err))
		return amm.DepositQuote{}, fmt.Errorf("deposit into %s: %w", key, err)
	}
	e.logger.Info("deposit settled",
		zap.String("pool", key.String()),
		zap.String("account", account),
		zap.Uint64("amount_a", req.AmountA),
		zap.Uint64("amount_b", req.AmountB),
		zap.Uint64("lp_amount", quote.LPAmount),
		zap.Bool("bootstrap", quote.Bootstrap),
	)
	return quote, nil
}

// Withdraw burns LP shares and pays out the proportional reserves.
func (e *Engine) Withdraw(ctx context.Context, key poolkey.Key, account string, req model.WithdrawalRequest) (WithdrawalResult, error) {
	var result WithdrawalResult
	err := e.store.Update(ctx, key, func(snap model.PoolSnapshot, txJournal storage.Journal) (model.PoolSnapshot, error) {
		amountA, amountB, err := amm.RedeemAmounts(snap, req)
		if err != nil {
			return snap, err
		}
		next, err := amm.ApplyWithdrawal(snap, req.LPAmount, amountA, amountB)
		if err != nil {
			return snap, err
		}
		op := e.newOp(key, "withdraw", account)
		movements := op.collect(
			op.movement(lpToken(key), model.MovementBurn, req.LPAmount),
			op.movement(snap.TokenA.Hex(), model.MovementCredit, amountA),
			op.movement(snap.TokenB.Hex(), model.MovementCredit, amountB),
		)
		if err := e.record(ctx, txJournal, movements); err != nil {
			return snap, err
		}
		result = WithdrawalResult{LPAmount: req.LPAmount, AmountA: amountA, AmountB: amountB}
		return next, nil
	})
	if err != nil {
		e.logger.Warn("withdrawal rejected", zap.String("pool", key.String()), zap.String("account", account), zap.Error(err))
		return WithdrawalResult{}, fmt.Errorf("withdraw from %s: %w", key, err)
	}
	e.logger.Info("withdrawal settled",
		zap.String("pool", key.String()),
		zap.String("account", account),
		zap.Uint64("lp_amount", req.LPAmount),
		zap.Uint64("amount_a", result.AmountA),
		zap.Uint64("amount_b", result.AmountB),
	)
	return result, nil
}

// Swap sells req.AmountIn of the input token for the output token.
func (e *Engine) Swap(ctx context.Context, key poolkey.Key, account string, req model.SwapRequest) (amm.SwapQuote, error) {
	var quote amm.SwapQuote
	err := e.store.Update(ctx, key, func(snap model.PoolSnapshot, txJournal storage.Journal) (model.PoolSnapshot, error) {
		q, err := amm.QuoteSwap(snap, req, e.cfg.Fee)
		if err != nil {
			return snap, err
		}
		next, err := amm.ApplySwap(snap, req.Direction, q.AmountIn, q.AmountOut)
		if err != nil {
			return snap, err
		}
		in, out, _ := snap.Side(req.Direction)
		op := e.newOp(key, "swap", account)
		movements := op.collect(
			op.movement(in.Token.Hex(), model.MovementDebit, q.AmountIn),
			op.movement(out.Token.Hex(), model.MovementCredit, q.AmountOut),
		)
		if err := e.record(ctx, txJournal, movements); err != nil {
			return snap, err
		}
		quote = q
		return next, nil
	})
	if err != nil {
		e.logger.Warn("swap rejected", zap.String("pool", key.String()), zap.String("account", account), zap.Error(err))
		return amm.SwapQuote{}, fmt.Errorf("swap on %s: %w", key, err)
	}
	e.logger.Info("swap settled",
		zap.String("pool", key.String()),
		zap.String("account", account),
		zap.Stringer("direction", req.Direction),
		zap.Uint64("amount_in", quote.AmountIn),
		zap.Uint64("amount_out", quote.AmountOut),
		zap.Bool("clamped", quote.Clamped),
	)
	return quote, nil
}

func (e *Engine) record(ctx context.Context, txJournal storage.Journal, movements []model.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	journal := e.journal
	if journal == nil {
		journal = txJournal
	}
	if err := journal.Append(ctx, movements); err != nil {
		return fmt.Errorf("journal movements: %w", err)
	}
	return nil
}

type opRecorder struct {
	pool    string
	name    string
	seq     uint64
	account string
	at      string
}

func (e *Engine) newOp(key poolkey.Key, name, account string) opRecorder {
	return opRecorder{
		pool:    key.String(),
		name:    name,
		seq:     e.seq.Add(1),
		account: account,
		at:      e.now().UTC().Format(time.RFC3339Nano),
	}
}

func (o opRecorder) movement(token string, kind model.MovementKind, amount uint64) model.Movement {
	return model.Movement{
		Pool:       o.pool,
		Op:         o.name,
		Seq:        o.seq,
		Account:    o.account,
		Token:      token,
		Kind:       kind,
		Amount:     amount,
		RecordedAt: o.at,
	}
}

// collect drops zero-amount movements.
func (o opRecorder) collect(movements ...model.Movement) []model.Movement {
	out := movements[:0]
	for _, m := range movements {
		if m.Amount != 0 {
			out = append(out, m)
		}
	}
	return out
}

// lpToken names the share token of a pool in the journal.
func lpToken(key poolkey.Key) string {
	return "lp:" + key.String()
}
