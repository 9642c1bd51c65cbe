package amm

import (
	"fmt"

	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/model"
)

// SwapQuote is the full valuation of a swap. KBefore and KAfter are the
// decimal-normalized reserve products before and after settlement.
type SwapQuote struct {
	Direction model.Direction  `json:"direction"`
	AmountIn  uint64           `json:"amount_in"`
	AmountOut uint64           `json:"amount_out"`
	Fee       Fee              `json:"fee_bps"`
	Clamped   bool             `json:"clamped"`
	KBefore   fixedpoint.Fixed `json:"k_before"`
	KAfter    fixedpoint.Fixed `json:"k_after"`
}

// SwapOut returns the output amount of a swap at DefaultFee.
func SwapOut(s model.PoolSnapshot, req model.SwapRequest) (uint64, error) {
	return SwapOutWithFee(s, req, DefaultFee)
}

// SwapOutWithFee returns the output amount of a swap at the given fee.
func SwapOutWithFee(s model.PoolSnapshot, req model.SwapRequest, fee Fee) (uint64, error) {
	q, err := QuoteSwap(s, req, fee)
	if err != nil {
		return 0, err
	}
	return q.AmountOut, nil
}

// QuoteSwap prices a swap on the constant product curve. The fee is taken
// from the input before decimal normalization, and the output is
//
//	reserve_out * in / (reserve_in + in)
//
// in normalized units, truncated once and capped at reserve_out.
func QuoteSwap(s model.PoolSnapshot, req model.SwapRequest, fee Fee) (SwapQuote, error) {
	if err := Validate(s); err != nil {
		return SwapQuote{}, err
	}
	if err := fee.Validate(); err != nil {
		return SwapQuote{}, err
	}
	in, out, ok := s.Side(req.Direction)
	if !ok {
		return SwapQuote{}, fmt.Errorf("%w: %s", ErrInvalidDirection, req.Direction)
	}
	quote := SwapQuote{Direction: req.Direction, AmountIn: req.AmountIn, Fee: fee}
	if req.AmountIn == 0 {
		return quote, nil
	}
	if in.Reserve == 0 || out.Reserve == 0 {
		return SwapQuote{}, ErrEmptyPool
	}

	afterFee, err := fixedpoint.FromUint64(req.AmountIn).Mul(fee.retained())
	if err != nil {
		return SwapQuote{}, fmt.Errorf("apply fee: %w", err)
	}
	// Above 14 input decimals this drops a remainder below 10^-18, which can
	// cost the trader one raw unit of output.
	amountInNorm := afterFee.Normalize(in.Decimals)
	reserveInNorm := fixedpoint.FromScaled(in.Reserve, in.Decimals)
	reserveOutNorm := fixedpoint.FromScaled(out.Reserve, out.Decimals)

	kBefore, err := reserveInNorm.Mul(reserveOutNorm)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("pool product: %w", err)
	}
	newReserveInNorm, err := reserveInNorm.Add(amountInNorm)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("new input reserve: %w", err)
	}
	amountOutNorm, err := reserveOutNorm.MulDiv(amountInNorm, newReserveInNorm)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("swap output: %w", err)
	}
	amountOut, err := amountOutNorm.ToScaled(out.Decimals)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("denormalize output: %w", err)
	}
	if amountOut > out.Reserve {
		amountOut = out.Reserve
		quote.Clamped = true
	}
	quote.AmountOut = amountOut
	quote.KBefore = kBefore

	settledIn, err := reserveInNorm.Add(fixedpoint.FromScaled(req.AmountIn, in.Decimals))
	if err != nil {
		return SwapQuote{}, fmt.Errorf("settled input reserve: %w", err)
	}
	settledOut, err := reserveOutNorm.Sub(fixedpoint.FromScaled(amountOut, out.Decimals))
	if err != nil {
		return SwapQuote{}, fmt.Errorf("settled output reserve: %w", err)
	}
	quote.KAfter, err = settledIn.Mul(settledOut)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("settled product: %w", err)
	}
	return quote, nil
}
