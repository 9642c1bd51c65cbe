package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

// MemoryStore keeps snapshots in memory. Updates to the same pool are
// serialized; different pools proceed independently.
type MemoryStore struct {
	mu    sync.RWMutex
	pools map[common.Hash]*memoryPool
}

type memoryPool struct {
	mu        sync.Mutex
	snap      model.PoolSnapshot
	movements []model.Movement
}

// pendingJournal buffers movements until the update that produced them
// succeeds.
type pendingJournal struct {
	movements []model.Movement
}

func (j *pendingJournal) Append(ctx context.Context, movements []model.Movement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.movements = append(j.movements, movements...)
	return nil
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pools: make(map[common.Hash]*memoryPool)}
}

func (s *MemoryStore) Create(_ context.Context, key poolkey.Key, snap model.PoolSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[key.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, key)
	}
	s.pools[key.ID] = &memoryPool{snap: snap}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key poolkey.Key) (model.PoolSnapshot, error) {
	p, err := s.pool(key)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap, nil
}

func (s *MemoryStore) Update(ctx context.Context, key poolkey.Key, fn UpdateFunc) error {
	p, err := s.pool(key)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	pending := &pendingJournal{}
	next, err := fn(p.snap, pending)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.snap = next
	p.movements = append(p.movements, pending.movements...)
	return nil
}

func (s *MemoryStore) Movements(_ context.Context, key poolkey.Key) ([]model.Movement, error) {
	p, err := s.pool(key)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Movement(nil), p.movements...), nil
}

func (s *MemoryStore) pool(key poolkey.Key) (*memoryPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[key.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, key)
	}
	return p, nil
}
