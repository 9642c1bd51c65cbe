package fixedpoint

import (
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

// MulDivFloor returns floor(x*y/d) using a wide intermediate product.
func MulDivFloor(x, y, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: %d * %d / 0", ErrDivisionByZero, x, y)
	}
	hi, lo := bits.Mul64(x, y)
	if hi >= d {
		return 0, fmt.Errorf("%w: %d * %d / %d does not fit in 64 bits", ErrOverflow, x, y, d)
	}
	quo, _ := bits.Div64(hi, lo, d)
	return quo, nil
}

// CompareRatios compares a/b with c/d exactly. Both denominators must be
// non-zero.
func CompareRatios(a, b, c, d uint64) int {
	var left, right uint256.Int
	left.Mul(uint256.NewInt(a), uint256.NewInt(d))
	right.Mul(uint256.NewInt(c), uint256.NewInt(b))
	return left.Cmp(&right)
}

// MulUint64 is a checked 64-bit multiplication.
func MulUint64(x, y uint64) (uint64, error) {
	hi, lo := bits.Mul64(x, y)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, x, y)
	}
	return lo, nil
}

// AddUint64 is a checked 64-bit addition.
func AddUint64(x, y uint64) (uint64, error) {
	sum, carry := bits.Add64(x, y, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, x, y)
	}
	return sum, nil
}

// SubUint64 is a checked 64-bit subtraction.
func SubUint64(x, y uint64) (uint64, error) {
	diff, borrow := bits.Sub64(x, y, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, x, y)
	}
	return diff, nil
}

// SqrtUint64 returns floor(sqrt(x)).
func SqrtUint64(x uint64) uint64 {
	var out uint256.Int
	out.Sqrt(uint256.NewInt(x))
	return out.Uint64()
}

// ScaledGeometricMean returns floor(sqrt(x/10^dx * y/10^dy) * 10^d) with a
// single truncation: the radicand x*y*10^(2d-dx-dy) is floored to an integer
// first, which does not change the integer square root.
func ScaledGeometricMean(x uint64, dx uint8, y uint64, dy uint8, d uint8) (uint64, error) {
	var radicand uint256.Int
	radicand.Mul(uint256.NewInt(x), uint256.NewInt(y))
	if radicand.IsZero() {
		return 0, nil
	}

	exp := 2*int(d) - int(dx) - int(dy)
	switch {
	case exp > maxPow10:
		return 0, fmt.Errorf("%w: %d * %d * 10^%d", ErrOverflow, x, y, exp)
	case exp > 0:
		if _, overflow := radicand.MulOverflow(&radicand, &pow10Table[exp]); overflow {
			return 0, fmt.Errorf("%w: %d * %d * 10^%d", ErrOverflow, x, y, exp)
		}
	case exp < -maxPow10:
		// x*y < 2^128 < 10^39, so the radicand floors to zero.
		return 0, nil
	case exp < 0:
		radicand.Div(&radicand, &pow10Table[-exp])
	}

	var root uint256.Int
	root.Sqrt(&radicand)
	if !root.IsUint64() {
		return 0, fmt.Errorf("%w: sqrt(%d * %d * 10^%d) does not fit in 64 bits", ErrOverflow, x, y, exp)
	}
	return root.Uint64(), nil
}
