package postgres

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"

	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
	"liquidityCore/internal/storage"
)

// openStore connects to the database named by AMM_TEST_PG_DSN.
func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("AMM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_PG_DSN not set; skipping postgres store test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	return store
}

// freshKey derives a pool key that no earlier run has used.
func freshKey(t *testing.T) poolkey.Key {
	t.Helper()
	seed := []byte(t.Name() + time.Now().String())
	key, err := poolkey.Canonicalize(
		common.BytesToAddress(crypto.Keccak256(seed, []byte("a"))),
		common.BytesToAddress(crypto.Keccak256(seed, []byte("b"))),
	)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	return key
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := freshKey(t)

	snap := model.PoolSnapshot{TokenA: key.TokenA, TokenB: key.TokenB, DecimalsA: 6, DecimalsB: 18, LPDecimals: 9}
	if err := store.Create(ctx, key, snap); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Create(ctx, key, snap); !errors.Is(err, storage.ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}

	err := store.Update(ctx, key, func(s model.PoolSnapshot, _ storage.Journal) (model.PoolSnapshot, error) {
		s.ReserveA = 18446744073709551615
		s.ReserveB = 42
		s.LPSupply = 7
		return s, nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	want := snap
	want.ReserveA, want.ReserveB, want.LPSupply = 18446744073709551615, 42, 7
	if got != want {
		t.Fatalf("snapshot mismatch: %+v != %+v", got, want)
	}

	if _, err := store.Load(ctx, freshKey(t)); !errors.Is(err, storage.ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func testMovements(key poolkey.Key, seq uint64) []model.Movement {
	at := time.Now().UTC().Format(time.RFC3339Nano)
	return []model.Movement{
		{Pool: key.String(), Op: "swap", Seq: seq, Account: "alice", Token: key.TokenA.Hex(), Kind: model.MovementDebit, Amount: 100, RecordedAt: at},
		{Pool: key.String(), Op: "swap", Seq: seq, Account: "alice", Token: key.TokenB.Hex(), Kind: model.MovementCredit, Amount: 90, RecordedAt: at},
	}
}

func createPool(t *testing.T, store *Store, key poolkey.Key) {
	t.Helper()
	snap := model.PoolSnapshot{TokenA: key.TokenA, TokenB: key.TokenB, ReserveA: 1000, ReserveB: 1000, LPSupply: 1000}
	if err := store.Create(context.Background(), key, snap); err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func TestStoreUpdateCommitsMovements(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := freshKey(t)
	createPool(t, store, key)

	want := testMovements(key, 1)
	err := store.Update(ctx, key, func(s model.PoolSnapshot, journal storage.Journal) (model.PoolSnapshot, error) {
		s.ReserveA += 100
		s.ReserveB -= 90
		return s, journal.Append(ctx, want)
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err := store.Movements(ctx, key)
	if err != nil {
		t.Fatalf("movements failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("movements mismatch: %+v != %+v", got, want)
	}
}

func TestStoreFailedUpdateDropsMovements(t *testing.T) {
	store := openStore(t)
	key := freshKey(t)
	createPool(t, store, key)

	boom := errors.New("boom")
	err := store.Update(context.Background(), key, func(s model.PoolSnapshot, journal storage.Journal) (model.PoolSnapshot, error) {
		if err := journal.Append(context.Background(), testMovements(key, 1)); err != nil {
			return s, err
		}
		return s, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected update error, got %v", err)
	}

	// The context dies after the movements are queued, so the pool update
	// and the commit cannot succeed.
	ctx, cancel := context.WithCancel(context.Background())
	err = store.Update(ctx, key, func(s model.PoolSnapshot, journal storage.Journal) (model.PoolSnapshot, error) {
		if err := journal.Append(ctx, testMovements(key, 2)); err != nil {
			return s, err
		}
		cancel()
		s.LPSupply++
		return s, nil
	})
	if err == nil {
		t.Fatalf("expected canceled update to fail")
	}

	got, err := store.Movements(context.Background(), key)
	if err != nil {
		t.Fatalf("movements failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("movements of failed updates were kept: %+v", got)
	}
	snap, err := store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.LPSupply != 1000 {
		t.Fatalf("pool changed: %+v", snap)
	}
}

func TestStoreUpdatesMorePoolsThanConnections(t *testing.T) {
	dsn := os.Getenv("AMM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_PG_DSN not set; skipping postgres store test")
	}
	sep := " "
	if strings.Contains(dsn, "://") {
		sep = "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dsn+sep+"pool_max_conns=2")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema failed: %v", err)
	}

	const pools = 8
	keys := make([]poolkey.Key, pools)
	for i := range keys {
		keys[i] = freshKey(t)
		createPool(t, store, keys[i])
	}

	var g errgroup.Group
	for i := range keys {
		key := keys[i]
		g.Go(func() error {
			return store.Update(ctx, key, func(s model.PoolSnapshot, journal storage.Journal) (model.PoolSnapshot, error) {
				s.ReserveA++
				return s, journal.Append(ctx, testMovements(key, 1))
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("parallel updates failed: %v", err)
	}
	for _, key := range keys {
		got, err := store.Movements(ctx, key)
		if err != nil {
			t.Fatalf("movements failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("pool %s: %d movements, want 2", key, len(got))
		}
	}
}
