// Package fixedpoint implements the deterministic fractional arithmetic used
// by every pool valuation.
//
// A Fixed is an unsigned decimal fixed-point number: a 256-bit integer scaled
// by 10^18. Products and quotients are evaluated with a 512-bit intermediate,
// and every operation truncates toward zero.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Decimals is the number of fractional decimal digits carried by a Fixed.
const Decimals = 18

// maxPow10 is the largest exponent whose power of ten fits in 256 bits.
const maxPow10 = 77

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrDivisionByZero = errors.New("division by zero")
)

var (
	pow10Table = buildPow10Table()
	scale      = pow10Table[Decimals]
)

func buildPow10Table() [maxPow10 + 1]uint256.Int {
	var table [maxPow10 + 1]uint256.Int
	table[0].SetOne()
	ten := uint256.NewInt(10)
	for i := 1; i <= maxPow10; i++ {
		table[i].Mul(&table[i-1], ten)
	}
	return table
}

// Fixed is an immutable non-negative fixed-point value. The zero value is 0.
type Fixed struct {
	raw uint256.Int
}

func Zero() Fixed {
	return Fixed{}
}

func One() Fixed {
	return Fixed{raw: scale}
}

// FromUint64 converts an integer. It cannot overflow.
func FromUint64(x uint64) Fixed {
	var f Fixed
	f.raw.Mul(uint256.NewInt(x), &scale)
	return f
}

// FromRaw wraps an already scaled 256-bit value.
func FromRaw(raw *uint256.Int) Fixed {
	var f Fixed
	f.raw.Set(raw)
	return f
}

// FromScaled converts a raw token amount with the given decimal exponent into
// a token-agnostic magnitude, i.e. amount / 10^decimals.
func FromScaled(amount uint64, decimals uint8) Fixed {
	return FromUint64(amount).Normalize(decimals)
}

// FromBasisPoints returns bps / 10000.
func FromBasisPoints(bps uint64) Fixed {
	var f Fixed
	f.raw.Mul(uint256.NewInt(bps), &pow10Table[Decimals-4])
	return f
}

// Ratio returns num / den.
func Ratio(num, den uint64) (Fixed, error) {
	if den == 0 {
		return Fixed{}, fmt.Errorf("%w: ratio %d/0", ErrDivisionByZero, num)
	}
	return mulDiv(uint256.NewInt(num), &scale, uint256.NewInt(den))
}

// Raw returns a copy of the scaled integer representation.
func (f Fixed) Raw() *uint256.Int {
	return f.raw.Clone()
}

func (f Fixed) IsZero() bool {
	return f.raw.IsZero()
}

// Cmp returns -1, 0 or +1.
func (f Fixed) Cmp(g Fixed) int {
	return f.raw.Cmp(&g.raw)
}

func (f Fixed) Min(g Fixed) Fixed {
	if f.Cmp(g) <= 0 {
		return f
	}
	return g
}

func (f Fixed) Add(g Fixed) (Fixed, error) {
	var out Fixed
	if _, overflow := out.raw.AddOverflow(&f.raw, &g.raw); overflow {
		return Fixed{}, fmt.Errorf("%w: %s + %s", ErrOverflow, f, g)
	}
	return out, nil
}

// Sub fails when g > f; negative values are not representable.
func (f Fixed) Sub(g Fixed) (Fixed, error) {
	var out Fixed
	if _, underflow := out.raw.SubOverflow(&f.raw, &g.raw); underflow {
		return Fixed{}, fmt.Errorf("%w: %s - %s is negative", ErrOverflow, f, g)
	}
	return out, nil
}

func (f Fixed) Mul(g Fixed) (Fixed, error) {
	return mulDiv(&f.raw, &g.raw, &scale)
}

func (f Fixed) Div(g Fixed) (Fixed, error) {
	if g.IsZero() {
		return Fixed{}, fmt.Errorf("%w: %s / 0", ErrDivisionByZero, f)
	}
	return mulDiv(&f.raw, &scale, &g.raw)
}

// MulDiv returns f*g/h with a single truncation.
func (f Fixed) MulDiv(g, h Fixed) (Fixed, error) {
	if h.IsZero() {
		return Fixed{}, fmt.Errorf("%w: %s * %s / 0", ErrDivisionByZero, f, g)
	}
	return mulDiv(&f.raw, &g.raw, &h.raw)
}

// Sqrt returns the largest Fixed whose square does not exceed f.
func (f Fixed) Sqrt() (Fixed, error) {
	var widened uint256.Int
	if _, overflow := widened.MulOverflow(&f.raw, &scale); overflow {
		return Fixed{}, fmt.Errorf("%w: sqrt(%s)", ErrOverflow, f)
	}
	var out Fixed
	out.raw.Sqrt(&widened)
	return out, nil
}

// Normalize divides by 10^decimals. Exponents beyond the representable range
// truncate to zero.
func (f Fixed) Normalize(decimals uint8) Fixed {
	if decimals > maxPow10 {
		return Fixed{}
	}
	var out Fixed
	out.raw.Div(&f.raw, &pow10Table[decimals])
	return out
}

// ToScaled returns floor(f * 10^decimals) as a raw token amount.
func (f Fixed) ToScaled(decimals uint8) (uint64, error) {
	if f.IsZero() {
		return 0, nil
	}
	if decimals > maxPow10 {
		return 0, fmt.Errorf("%w: 10^%d", ErrOverflow, decimals)
	}
	var out uint256.Int
	if _, overflow := out.MulDivOverflow(&f.raw, &pow10Table[decimals], &scale); overflow {
		return 0, fmt.Errorf("%w: %s * 10^%d", ErrOverflow, f, decimals)
	}
	if !out.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrOverflow, out.Dec())
	}
	return out.Uint64(), nil
}

// Floor returns the integer part.
func (f Fixed) Floor() (uint64, error) {
	return f.ToScaled(0)
}

func (f Fixed) String() string {
	return trimFraction(FormatAmount(f.raw.ToBig(), Decimals))
}

func (f Fixed) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func mulDiv(x, y, d *uint256.Int) (Fixed, error) {
	var out Fixed
	if _, overflow := out.raw.MulDivOverflow(x, y, d); overflow {
		return Fixed{}, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return out, nil
}
