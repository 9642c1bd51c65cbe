package amm

import (
	"fmt"

	"liquidityCore/internal/fixedpoint"
)

// Fee is a swap fee in basis points of the input amount.
type Fee uint64

const (
	// DefaultFee is 0.3%.
	DefaultFee Fee = 30

	feeDenominator = 10_000
)

// ParseFee converts a basis-point value and validates it.
func ParseFee(bps uint64) (Fee, error) {
	fee := Fee(bps)
	if err := fee.Validate(); err != nil {
		return 0, err
	}
	return fee, nil
}

func (f Fee) Validate() error {
	if f >= feeDenominator {
		return fmt.Errorf("%w: %d bps", ErrInvalidFee, uint64(f))
	}
	return nil
}

// Rate returns the fee as a fraction.
func (f Fee) Rate() fixedpoint.Fixed {
	return fixedpoint.FromBasisPoints(uint64(f))
}

// retained is the fraction of the input that reaches the curve.
func (f Fee) retained() fixedpoint.Fixed {
	return fixedpoint.FromBasisPoints(feeDenominator - uint64(f))
}

func (f Fee) String() string {
	return fixedpoint.FormatUint64(uint64(f), 2) + "%"
}
