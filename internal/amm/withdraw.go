package amm

import (
	"fmt"

	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/model"
)

// RedeemAmounts returns the token amounts paid out for burning LP shares.
// Both amounts are floored, so the pool never pays more than the burned
// fraction of either reserve.
func RedeemAmounts(s model.PoolSnapshot, req model.WithdrawalRequest) (amountA, amountB uint64, err error) {
	if err := Validate(s); err != nil {
		return 0, 0, err
	}
	if s.LPSupply == 0 {
		return 0, 0, ErrEmptyPool
	}
	if req.LPAmount > s.LPSupply {
		return 0, 0, fmt.Errorf("%w: burn %d of %d", ErrInsufficientShares, req.LPAmount, s.LPSupply)
	}
	if req.LPAmount == 0 {
		return 0, 0, nil
	}
	amountA, err = fixedpoint.MulDivFloor(s.ReserveA, req.LPAmount, s.LPSupply)
	if err != nil {
		return 0, 0, fmt.Errorf("redeem token a: %w", err)
	}
	amountB, err = fixedpoint.MulDivFloor(s.ReserveB, req.LPAmount, s.LPSupply)
	if err != nil {
		return 0, 0, fmt.Errorf("redeem token b: %w", err)
	}
	return amountA, amountB, nil
}
