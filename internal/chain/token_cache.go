package chain

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// DecimalsCache caches token decimals by address.
type DecimalsCache struct {
	mu   sync.RWMutex
	data map[common.Address]uint8
}

func NewDecimalsCache() *DecimalsCache {
	return &DecimalsCache{data: make(map[common.Address]uint8)}
}

func (c *DecimalsCache) Get(address common.Address) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[address]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *DecimalsCache) Set(address common.Address, decimals uint8) {
	c.mu.Lock()
	c.data[address] = decimals
	c.mu.Unlock()
}

// Fetch returns cached decimals or loads them with load.
func (c *DecimalsCache) Fetch(ctx context.Context, address common.Address, load func(context.Context, common.Address) (uint8, error)) (uint8, error) {
	if decimals, ok := c.Get(address); ok {
		return decimals, nil
	}
	decimals, err := load(ctx, address)
	if err != nil {
		return 0, err
	}
	c.Set(address, decimals)
	return decimals, nil
}
