package model

import (
	"github.com/ethereum/go-ethereum/common"

	"liquidityCore/internal/fixedpoint"
)

// PoolSnapshot is a read of a pool's reserves, share supply and decimal
// metadata. TokenA and TokenB are optional; when set, TokenA sorts before
// TokenB.
type PoolSnapshot struct {
	TokenA     common.Address `json:"token_a"`
	TokenB     common.Address `json:"token_b"`
	ReserveA   uint64         `json:"reserve_a"`
	ReserveB   uint64         `json:"reserve_b"`
	DecimalsA  uint8          `json:"decimals_a"`
	DecimalsB  uint8          `json:"decimals_b"`
	LPSupply   uint64         `json:"lp_supply"`
	LPDecimals uint8          `json:"lp_decimals"`
}

// HasTokens reports whether the snapshot carries token identifiers.
func (s PoolSnapshot) HasTokens() bool {
	return s.TokenA != (common.Address{}) || s.TokenB != (common.Address{})
}

// Side returns the reserve and decimals of the input and output tokens for a
// swap direction. ok is false for an invalid direction.
func (s PoolSnapshot) Side(dir Direction) (in, out TokenSide, ok bool) {
	a := TokenSide{Token: s.TokenA, Reserve: s.ReserveA, Decimals: s.DecimalsA}
	b := TokenSide{Token: s.TokenB, Reserve: s.ReserveB, Decimals: s.DecimalsB}
	switch dir {
	case AToB:
		return a, b, true
	case BToA:
		return b, a, true
	default:
		return TokenSide{}, TokenSide{}, false
	}
}

// TokenSide is one token's view of a pool.
type TokenSide struct {
	Token    common.Address
	Reserve  uint64
	Decimals uint8
}

// SnapshotView renders a snapshot in display units.
type SnapshotView struct {
	TokenA   string `json:"token_a,omitempty"`
	TokenB   string `json:"token_b,omitempty"`
	ReserveA string `json:"reserve_a"`
	ReserveB string `json:"reserve_b"`
	LPSupply string `json:"lp_supply"`
}

// View formats reserves and supply using each token's decimals.
func (s PoolSnapshot) View() SnapshotView {
	v := SnapshotView{
		ReserveA: fixedpoint.FormatUint64(s.ReserveA, s.DecimalsA),
		ReserveB: fixedpoint.FormatUint64(s.ReserveB, s.DecimalsB),
		LPSupply: fixedpoint.FormatUint64(s.LPSupply, s.LPDecimals),
	}
	if s.HasTokens() {
		v.TokenA = s.TokenA.Hex()
		v.TokenB = s.TokenB.Hex()
	}
	return v
}
