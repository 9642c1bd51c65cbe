package amm

import (
	"fmt"

	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/model"
)

// Side names one of the two pool tokens.
type Side uint8

const (
	SideNone Side = iota
	SideA
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "a"
	case SideB:
		return "b"
	default:
		return "none"
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DepositQuote is the valuation of a deposit. Binding is the token whose
// ratio to its reserve limited the mint; it is SideNone for a bootstrap.
type DepositQuote struct {
	LPAmount  uint64 `json:"lp_amount"`
	Bootstrap bool   `json:"bootstrap"`
	Binding   Side   `json:"binding"`
}

// MintAmount returns the LP shares minted for a deposit.
func MintAmount(s model.PoolSnapshot, req model.DepositRequest) (uint64, error) {
	q, err := QuoteDeposit(s, req)
	if err != nil {
		return 0, err
	}
	return q.LPAmount, nil
}

// QuoteDeposit values a deposit. An empty pool is priced by the geometric
// mean of the decimal-normalized amounts expressed in LP units; a live pool
// mints lp_supply * min(amount_a/reserve_a, amount_b/reserve_b), floored.
func QuoteDeposit(s model.PoolSnapshot, req model.DepositRequest) (DepositQuote, error) {
	if err := Validate(s); err != nil {
		return DepositQuote{}, err
	}
	if req.AmountA == 0 && req.AmountB == 0 {
		return DepositQuote{}, ErrZeroDeposit
	}
	if s.LPSupply == 0 {
		minted, err := bootstrapMint(s, req)
		if err != nil {
			return DepositQuote{}, err
		}
		return DepositQuote{LPAmount: minted, Bootstrap: true}, nil
	}

	binding, amount, reserve := SideA, req.AmountA, s.ReserveA
	if fixedpoint.CompareRatios(req.AmountB, s.ReserveB, req.AmountA, s.ReserveA) < 0 {
		binding, amount, reserve = SideB, req.AmountB, s.ReserveB
	}
	minted, err := fixedpoint.MulDivFloor(s.LPSupply, amount, reserve)
	if err != nil {
		return DepositQuote{}, fmt.Errorf("mint for deposit (%d, %d): %w", req.AmountA, req.AmountB, err)
	}
	return DepositQuote{LPAmount: minted, Binding: binding}, nil
}

func bootstrapMint(s model.PoolSnapshot, req model.DepositRequest) (uint64, error) {
	if req.AmountA == 0 || req.AmountB == 0 {
		return 0, fmt.Errorf("%w: first deposit needs both tokens, got (%d, %d)", ErrZeroDeposit, req.AmountA, req.AmountB)
	}

	minted, err := fixedpoint.ScaledGeometricMean(req.AmountA, s.DecimalsA, req.AmountB, s.DecimalsB, s.LPDecimals)
	if err != nil {
		return 0, fmt.Errorf("bootstrap lp amount: %w", err)
	}
	if minted == 0 {
		return 0, fmt.Errorf("%w: deposit (%d, %d)", ErrInsufficientLiquidityMinted, req.AmountA, req.AmountB)
	}
	return minted, nil
}
