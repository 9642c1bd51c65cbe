package storage

import (
	"context"
	"errors"

	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

var (
	ErrPoolNotFound = errors.New("pool not found")
	ErrPoolExists   = errors.New("pool already exists")
)

// UpdateFunc receives the current snapshot of a pool and returns the snapshot
// to persist. Movements appended to journal are committed together with the
// snapshot. Returning an error discards both.
type UpdateFunc func(snap model.PoolSnapshot, journal Journal) (model.PoolSnapshot, error)

// SnapshotStore persists one snapshot per pool key. Update must hold the
// pool exclusively from read to write.
type SnapshotStore interface {
	Create(ctx context.Context, key poolkey.Key, snap model.PoolSnapshot) error
	Load(ctx context.Context, key poolkey.Key) (model.PoolSnapshot, error)
	Update(ctx context.Context, key poolkey.Key, fn UpdateFunc) error
}

// Journal is a sink for token movements produced by settled operations.
type Journal interface {
	Append(ctx context.Context, movements []model.Movement) error
}

// MovementReader lists the movements a store committed for a pool, oldest first.
type MovementReader interface {
	Movements(ctx context.Context, key poolkey.Key) ([]model.Movement, error)
}
