package amm

import (
	"errors"

	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/poolkey"
)

var (
	ErrInvalidPoolState            = errors.New("invalid pool state")
	ErrEmptyPool                   = errors.New("empty pool")
	ErrZeroDeposit                 = errors.New("zero deposit")
	ErrInsufficientShares          = errors.New("insufficient lp shares")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInvalidDirection            = errors.New("invalid swap direction")
	ErrInvalidFee                  = errors.New("invalid fee")
	ErrPoolDrained                 = errors.New("operation would drain the pool")

	ErrArithmeticOverflow = fixedpoint.ErrOverflow
	ErrDivisionByZero     = fixedpoint.ErrDivisionByZero

	ErrUnorderedPair   = poolkey.ErrUnorderedPair
	ErrIdenticalTokens = poolkey.ErrIdenticalTokens
)
