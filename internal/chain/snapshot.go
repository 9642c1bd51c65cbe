package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityCore/internal/amm"
	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

// PoolSource locates a pool deployed as ERC20 contracts: the two tokens in
// any order, the account holding the reserves, and the LP share token.
type PoolSource struct {
	TokenX  common.Address
	TokenY  common.Address
	Vault   common.Address
	LPToken common.Address
}

// ChainSnapshot is a pool snapshot pinned to the block it was read at.
type ChainSnapshot struct {
	Key         poolkey.Key        `json:"key"`
	BlockNumber uint64             `json:"block_number"`
	Snapshot    model.PoolSnapshot `json:"snapshot"`
	State       model.PoolState    `json:"state"`
}

// SnapshotReader reads pool snapshots from an EVM chain.
type SnapshotReader struct {
	client   *Client
	decimals *DecimalsCache
	retry    RetryPolicy
	logger   *zap.Logger
}

func NewSnapshotReader(client *Client, retry RetryPolicy, logger *zap.Logger) *SnapshotReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotReader{
		client:   client,
		decimals: NewDecimalsCache(),
		retry:    retry,
		logger:   logger,
	}
}

// Read loads reserves and supply at the latest block. All balance reads
// use the same block number.
func (r *SnapshotReader) Read(ctx context.Context, src PoolSource) (ChainSnapshot, error) {
	if r.client == nil {
		return ChainSnapshot{}, fmt.Errorf("chain client is nil")
	}
	key, err := poolkey.Canonicalize(src.TokenX, src.TokenY)
	if err != nil {
		return ChainSnapshot{}, err
	}

	var blockNumber uint64
	err = r.retry.do(ctx, r.logger, "block_number", func(ctx context.Context) error {
		var err error
		blockNumber, err = r.client.HeadBlock(ctx)
		return err
	})
	if err != nil {
		return ChainSnapshot{}, fmt.Errorf("latest block: %w", err)
	}
	block := new(big.Int).SetUint64(blockNumber)

	snap := model.PoolSnapshot{TokenA: key.TokenA, TokenB: key.TokenB}
	if snap.DecimalsA, err = r.tokenDecimals(ctx, key.TokenA); err != nil {
		return ChainSnapshot{}, err
	}
	if snap.DecimalsB, err = r.tokenDecimals(ctx, key.TokenB); err != nil {
		return ChainSnapshot{}, err
	}
	if snap.LPDecimals, err = r.tokenDecimals(ctx, src.LPToken); err != nil {
		return ChainSnapshot{}, err
	}
	if snap.ReserveA, err = r.balance(ctx, key.TokenA, src.Vault, block); err != nil {
		return ChainSnapshot{}, err
	}
	if snap.ReserveB, err = r.balance(ctx, key.TokenB, src.Vault, block); err != nil {
		return ChainSnapshot{}, err
	}
	err = r.retry.do(ctx, r.logger, "total_supply", func(ctx context.Context) error {
		var err error
		snap.LPSupply, err = r.client.TotalSupply(ctx, src.LPToken, block)
		return err
	})
	if err != nil {
		return ChainSnapshot{}, fmt.Errorf("lp supply: %w", err)
	}

	state, err := amm.StateOf(snap)
	if err != nil {
		return ChainSnapshot{}, fmt.Errorf("pool %s at block %d: %w", key, blockNumber, err)
	}
	r.logger.Debug("snapshot read",
		zap.String("pool", key.String()),
		zap.Uint64("block", blockNumber),
		zap.Uint64("reserve_a", snap.ReserveA),
		zap.Uint64("reserve_b", snap.ReserveB),
		zap.Uint64("lp_supply", snap.LPSupply),
	)
	return ChainSnapshot{Key: key, BlockNumber: blockNumber, Snapshot: snap, State: state}, nil
}

func (r *SnapshotReader) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	decimals, err := r.decimals.Fetch(ctx, token, func(ctx context.Context, token common.Address) (uint8, error) {
		var decimals uint8
		err := r.retry.do(ctx, r.logger, "decimals", func(ctx context.Context) error {
			var err error
			decimals, err = r.client.Decimals(ctx, token)
			return err
		})
		return decimals, err
	})
	if err != nil {
		return 0, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
	}
	return decimals, nil
}

func (r *SnapshotReader) balance(ctx context.Context, token, owner common.Address, block *big.Int) (uint64, error) {
	var balance uint64
	err := r.retry.do(ctx, r.logger, "balance_of", func(ctx context.Context) error {
		var err error
		balance, err = r.client.BalanceOf(ctx, token, owner, block)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", token.Hex(), err)
	}
	return balance, nil
}
