package fixedpoint

import (
	"math/big"
	"strings"
)

// FormatAmount renders a raw integer amount with the given number of decimals.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// FormatUint64 renders a raw token amount in display units.
func FormatUint64(amount uint64, decimals uint8) string {
	return trimFraction(FormatAmount(new(big.Int).SetUint64(amount), decimals))
}

func trimFraction(text string) string {
	if !strings.Contains(text, ".") {
		return text
	}
	text = strings.TrimRight(text, "0")
	return strings.TrimSuffix(text, ".")
}
