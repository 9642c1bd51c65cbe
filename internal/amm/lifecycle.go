package amm

import (
	"fmt"

	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/model"
)

// ApplyDeposit returns the snapshot after a deposit that minted lpAmount
// shares. A bootstrapped pool stays bootstrapped.
func ApplyDeposit(s model.PoolSnapshot, req model.DepositRequest, lpAmount uint64) (model.PoolSnapshot, error) {
	if err := Validate(s); err != nil {
		return s, err
	}
	if lpAmount == 0 {
		return s, fmt.Errorf("%w: deposit (%d, %d)", ErrInsufficientLiquidityMinted, req.AmountA, req.AmountB)
	}
	next := s
	var err error
	if next.ReserveA, err = fixedpoint.AddUint64(s.ReserveA, req.AmountA); err != nil {
		return s, fmt.Errorf("reserve a: %w", err)
	}
	if next.ReserveB, err = fixedpoint.AddUint64(s.ReserveB, req.AmountB); err != nil {
		return s, fmt.Errorf("reserve b: %w", err)
	}
	if next.LPSupply, err = fixedpoint.AddUint64(s.LPSupply, lpAmount); err != nil {
		return s, fmt.Errorf("lp supply: %w", err)
	}
	if err := Validate(next); err != nil {
		return s, err
	}
	return next, nil
}

// ApplyWithdrawal returns the snapshot after burning lpAmount shares for
// (amountA, amountB). Burning the entire supply is rejected: pools are never
// returned to the uninitialized state.
func ApplyWithdrawal(s model.PoolSnapshot, lpAmount, amountA, amountB uint64) (model.PoolSnapshot, error) {
	if err := Validate(s); err != nil {
		return s, err
	}
	if s.LPSupply == 0 {
		return s, ErrEmptyPool
	}
	if lpAmount > s.LPSupply {
		return s, fmt.Errorf("%w: burn %d of %d", ErrInsufficientShares, lpAmount, s.LPSupply)
	}
	if lpAmount == s.LPSupply || amountA >= s.ReserveA || amountB >= s.ReserveB {
		return s, fmt.Errorf("%w: burn %d of %d", ErrPoolDrained, lpAmount, s.LPSupply)
	}
	next := s
	next.LPSupply -= lpAmount
	next.ReserveA -= amountA
	next.ReserveB -= amountB
	return next, nil
}

// ApplySwap returns the snapshot after amountIn of the input token entered
// the pool and amountOut of the output token left it.
func ApplySwap(s model.PoolSnapshot, dir model.Direction, amountIn, amountOut uint64) (model.PoolSnapshot, error) {
	if err := Validate(s); err != nil {
		return s, err
	}
	in, out, ok := s.Side(dir)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrInvalidDirection, dir)
	}
	if amountIn == 0 && amountOut == 0 {
		return s, nil
	}
	if s.LPSupply == 0 {
		return s, ErrEmptyPool
	}
	if amountOut >= out.Reserve {
		return s, fmt.Errorf("%w: swap out %d of %d", ErrPoolDrained, amountOut, out.Reserve)
	}
	newIn, err := fixedpoint.AddUint64(in.Reserve, amountIn)
	if err != nil {
		return s, fmt.Errorf("input reserve: %w", err)
	}
	newOut := out.Reserve - amountOut

	next := s
	if dir == model.AToB {
		next.ReserveA, next.ReserveB = newIn, newOut
	} else {
		next.ReserveB, next.ReserveA = newIn, newOut
	}
	return next, nil
}
