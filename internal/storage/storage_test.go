package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
)

func testKey(t *testing.T) poolkey.Key {
	t.Helper()
	key, err := poolkey.Canonicalize(
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	return key
}

func TestJsonlJournalAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "movements.jsonl")
	journal := NewJsonlJournal(path)
	ctx := context.Background()

	first := []model.Movement{
		{Pool: "0x01", Op: "deposit", Seq: 1, Account: "alice", Token: "0xa", Kind: model.MovementDebit, Amount: 1000},
		{Pool: "0x01", Op: "deposit", Seq: 1, Account: "alice", Token: "0xlp", Kind: model.MovementMint, Amount: 1000},
	}
	second := []model.Movement{
		{Pool: "0x01", Op: "swap", Seq: 2, Account: "bob", Token: "0xb", Kind: model.MovementCredit, Amount: 90},
	}
	if err := journal.Append(ctx, first); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := journal.Append(ctx, nil); err != nil {
		t.Fatalf("empty append failed: %v", err)
	}
	if err := journal.Append(ctx, second); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := ReadJournal(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := append(append([]model.Movement{}, first...), second...)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("journal mismatch: %+v != %+v", want, got)
	}
}

func TestJsonlJournalCanceledContext(t *testing.T) {
	journal := NewJsonlJournal(filepath.Join(t.TempDir(), "movements.jsonl"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := journal.Append(ctx, []model.Movement{{Pool: "0x01"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	key := testKey(t)
	ctx := context.Background()

	if _, err := store.Load(ctx, key); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
	snap := model.PoolSnapshot{TokenA: key.TokenA, TokenB: key.TokenB, DecimalsA: 6, DecimalsB: 18, LPDecimals: 9}
	if err := store.Create(ctx, key, snap); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Create(ctx, key, snap); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}

	boom := errors.New("boom")
	err := store.Update(ctx, key, func(s model.PoolSnapshot, _ Journal) (model.PoolSnapshot, error) {
		s.ReserveA = 1
		return s, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected update error, got %v", err)
	}
	got, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != snap {
		t.Fatalf("failed update must not persist: %+v", got)
	}
}

func TestMemoryStoreSerializesUpdates(t *testing.T) {
	store := NewMemoryStore()
	key := testKey(t)
	ctx := context.Background()
	if err := store.Create(ctx, key, model.PoolSnapshot{}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const workers = 64
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return store.Update(ctx, key, func(s model.PoolSnapshot, _ Journal) (model.PoolSnapshot, error) {
				s.ReserveA++
				s.ReserveB += 2
				s.LPSupply++
				return s, nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.ReserveA != workers || got.ReserveB != 2*workers || got.LPSupply != workers {
		t.Fatalf("lost updates: %+v", got)
	}
}

func TestMemoryStoreCommitsMovementsWithSnapshot(t *testing.T) {
	store := NewMemoryStore()
	key := testKey(t)
	ctx := context.Background()
	if err := store.Create(ctx, key, model.PoolSnapshot{}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	debit := model.Movement{Pool: key.String(), Op: "swap", Seq: 1, Token: key.TokenA.Hex(), Kind: model.MovementDebit, Amount: 100}
	boom := errors.New("boom")
	err := store.Update(ctx, key, func(s model.PoolSnapshot, journal Journal) (model.PoolSnapshot, error) {
		if err := journal.Append(ctx, []model.Movement{debit}); err != nil {
			return s, err
		}
		return s, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected update error, got %v", err)
	}
	got, err := store.Movements(ctx, key)
	if err != nil {
		t.Fatalf("movements failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("failed update must not keep movements: %+v", got)
	}

	err = store.Update(ctx, key, func(s model.PoolSnapshot, journal Journal) (model.PoolSnapshot, error) {
		s.ReserveA = 100
		return s, journal.Append(ctx, []model.Movement{debit})
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err = store.Movements(ctx, key)
	if err != nil {
		t.Fatalf("movements failed: %v", err)
	}
	if !reflect.DeepEqual(got, []model.Movement{debit}) {
		t.Fatalf("movements mismatch: %+v", got)
	}
}

func TestMemoryStoreCanceledUpdateKeepsNothing(t *testing.T) {
	store := NewMemoryStore()
	key := testKey(t)
	if err := store.Create(context.Background(), key, model.PoolSnapshot{}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := store.Update(ctx, key, func(s model.PoolSnapshot, journal Journal) (model.PoolSnapshot, error) {
		if err := journal.Append(ctx, []model.Movement{{Pool: key.String(), Amount: 1}}); err != nil {
			return s, err
		}
		cancel()
		s.LPSupply = 1
		return s, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	snap, _ := store.Load(context.Background(), key)
	movements, _ := store.Movements(context.Background(), key)
	if snap.LPSupply != 0 || len(movements) != 0 {
		t.Fatalf("canceled update persisted: %+v %+v", snap, movements)
	}
}
