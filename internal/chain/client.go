package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client reads token state from an EVM node with eth_call. Reads that make
// up one pool snapshot are pinned to the block returned by HeadBlock.
type Client struct {
	rpcClient *rpc.Client
	eth       *ethclient.Client
	erc20     abi.ABI
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	client, err := newClient(rpcClient)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return client, nil
}

func newClient(rpcClient *rpc.Client) (*Client, error) {
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Client{
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
		erc20:     tokenABI,
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID identifies the network the snapshot comes from.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

// HeadBlock returns the latest block number.
func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// call runs eth_call against contract at block; nil means latest.
func (c *Client) call(ctx context.Context, contract common.Address, data []byte, block *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, block)
}
