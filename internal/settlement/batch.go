package settlement

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityCore/internal/amm"
	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

// Operation is one entry of a settlement batch. Exactly one of Deposit,
// Withdrawal and Swap must be set.
type Operation struct {
	Pool       poolkey.Key              `json:"pool"`
	Account    string                   `json:"account"`
	Deposit    *model.DepositRequest    `json:"deposit,omitempty"`
	Withdrawal *model.WithdrawalRequest `json:"withdrawal,omitempty"`
	Swap       *model.SwapRequest       `json:"swap,omitempty"`
}

// Result is the outcome of one Operation.
type Result struct {
	Deposit    *amm.DepositQuote `json:"deposit,omitempty"`
	Withdrawal *WithdrawalResult `json:"withdrawal,omitempty"`
	Swap       *amm.SwapQuote    `json:"swap,omitempty"`
	Err        error             `json:"-"`
}

// SettleBatch settles ops and returns one result per op, in order.
// Operations on the same pool run serially in batch order; different pools
// run concurrently. A failed operation does not stop the others.
func (e *Engine) SettleBatch(ctx context.Context, ops []Operation) []Result {
	results := make([]Result, len(ops))

	var order []common.Hash
	byPool := make(map[common.Hash][]int)
	for i, op := range ops {
		id := op.Pool.ID
		if _, ok := byPool[id]; !ok {
			order = append(order, id)
		}
		byPool[id] = append(byPool[id], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for _, id := range order {
		indexes := byPool[id]
		g.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i] = e.settle(gctx, ops[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Info("batch settled",
		zap.Int("operations", len(ops)),
		zap.Int("pools", len(order)),
		zap.Int("failed", failed),
	)
	return results
}

func (e *Engine) settle(ctx context.Context, op Operation) Result {
	set := 0
	for _, present := range []bool{op.Deposit != nil, op.Withdrawal != nil, op.Swap != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return Result{Err: fmt.Errorf("operation on %s must carry exactly one request, got %d", op.Pool, set)}
	}

	switch {
	case op.Deposit != nil:
		q, err := e.Deposit(ctx, op.Pool, op.Account, *op.Deposit)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Deposit: &q}
	case op.Withdrawal != nil:
		w, err := e.Withdraw(ctx, op.Pool, op.Account, *op.Withdrawal)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Withdrawal: &w}
	default:
		q, err := e.Swap(ctx, op.Pool, op.Account, *op.Swap)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Swap: &q}
	}
}
