package model

import (
	"fmt"
	"strings"
)

// DepositRequest carries raw token amounts offered to a pool.
type DepositRequest struct {
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
}

// WithdrawalRequest burns LPAmount shares.
type WithdrawalRequest struct {
	LPAmount uint64 `json:"lp_amount"`
}

// SwapRequest sells AmountIn of the input token selected by Direction.
type SwapRequest struct {
	AmountIn  uint64    `json:"amount_in"`
	Direction Direction `json:"direction"`
}

// Direction selects which pool token is sold. The zero value is invalid.
type Direction uint8

const (
	AToB Direction = iota + 1
	BToA
)

func (d Direction) Valid() bool {
	return d == AToB || d == BToA
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case AToB:
		return BToA
	case BToA:
		return AToB
	default:
		return d
	}
}

func (d Direction) String() string {
	switch d {
	case AToB:
		return "a_to_b"
	case BToA:
		return "b_to_a"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid swap direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts "a_to_b", "a-to-b", "ab" and their b-side forms.
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "a_to_b", "a-to-b", "atob", "ab":
		return AToB, nil
	case "b_to_a", "b-to-a", "btoa", "ba":
		return BToA, nil
	default:
		return 0, fmt.Errorf("unknown swap direction %q", value)
	}
}
