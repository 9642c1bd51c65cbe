package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"liquidityCore/internal/fixedpoint"
)

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

// ERC20ABI returns the parsed subset of the ERC20 interface used here.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// Decimals reads decimals() of a token.
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	values, err := c.callERC20(ctx, token, nil, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	return decimals, nil
}

// BalanceOf reads balanceOf(owner) of a token at a block; nil means latest.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address, blockNumber *big.Int) (uint64, error) {
	values, err := c.callERC20(ctx, token, blockNumber, "balanceOf", owner)
	if err != nil {
		return 0, err
	}
	return asUint64("balanceOf", values[0])
}

// TotalSupply reads totalSupply() of a token at a block; nil means latest.
func (c *Client) TotalSupply(ctx context.Context, token common.Address, blockNumber *big.Int) (uint64, error) {
	values, err := c.callERC20(ctx, token, blockNumber, "totalSupply")
	if err != nil {
		return 0, err
	}
	return asUint64("totalSupply", values[0])
}

func (c *Client) callERC20(ctx context.Context, token common.Address, blockNumber *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	resp, err := c.call(ctx, token, data, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, token.Hex(), err)
	}

	values, err := c.erc20.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values, nil
}

func asUint64(method string, value interface{}) (uint64, error) {
	amount, ok := value.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s unexpected type %T", method, value)
	}
	if !amount.IsUint64() {
		return 0, fmt.Errorf("%s: %w: %s does not fit in 64 bits", method, fixedpoint.ErrOverflow, amount)
	}
	return amount.Uint64(), nil
}
