// Package amm prices deposits, withdrawals and swaps against a constant
// product pool snapshot. Every function here is pure: it reads the snapshot
// it is given and returns a result or one of the package's sentinel errors.
package amm

import (
	"fmt"

	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

// Validate checks the snapshot invariants every valuation relies on.
func Validate(s model.PoolSnapshot) error {
	if s.HasTokens() {
		if s.TokenA == s.TokenB {
			return fmt.Errorf("%w: %s", ErrIdenticalTokens, s.TokenA.Hex())
		}
		if !poolkey.Ordered(s.TokenA, s.TokenB) {
			return fmt.Errorf("%w: %s >= %s", ErrUnorderedPair, s.TokenA.Hex(), s.TokenB.Hex())
		}
	}
	emptyA := s.ReserveA == 0
	emptyB := s.ReserveB == 0
	noSupply := s.LPSupply == 0
	if emptyA != emptyB || emptyA != noSupply {
		return fmt.Errorf("%w: reserve_a=%d reserve_b=%d lp_supply=%d",
			ErrInvalidPoolState, s.ReserveA, s.ReserveB, s.LPSupply)
	}
	return nil
}

// StateOf returns the lifecycle stage implied by a snapshot.
func StateOf(s model.PoolSnapshot) (model.PoolState, error) {
	if err := Validate(s); err != nil {
		return model.Uninitialized, err
	}
	if s.LPSupply == 0 {
		return model.Uninitialized, nil
	}
	return model.Bootstrapped, nil
}
