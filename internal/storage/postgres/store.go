package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityCore/internal/model"
	"liquidityCore/internal/poolkey"
	"liquidityCore/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id     TEXT PRIMARY KEY,
	token_a     TEXT NOT NULL,
	token_b     TEXT NOT NULL,
	reserve_a   NUMERIC(20, 0) NOT NULL,
	reserve_b   NUMERIC(20, 0) NOT NULL,
	decimals_a  SMALLINT NOT NULL,
	decimals_b  SMALLINT NOT NULL,
	lp_supply   NUMERIC(20, 0) NOT NULL,
	lp_decimals SMALLINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_movements (
	id          BIGSERIAL PRIMARY KEY,
	pool_id     TEXT NOT NULL,
	op          TEXT NOT NULL,
	seq         BIGINT NOT NULL,
	account     TEXT NOT NULL,
	token       TEXT NOT NULL,
	kind        TEXT NOT NULL,
	amount      NUMERIC(20, 0) NOT NULL,
	recorded_at TEXT NOT NULL
);
`

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Store persists pool snapshots and movements in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Create inserts a new pool row.
func (s *Store) Create(ctx context.Context, key poolkey.Key, snap model.PoolSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id, token_a, token_b, reserve_a, reserve_b, decimals_a, decimals_b, lp_supply, lp_decimals
		) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8::numeric, $9)
	`,
		key.ID.Hex(),
		key.TokenA.Hex(),
		key.TokenB.Hex(),
		formatUint(snap.ReserveA),
		formatUint(snap.ReserveB),
		int16(snap.DecimalsA),
		int16(snap.DecimalsB),
		formatUint(snap.LPSupply),
		int16(snap.LPDecimals),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrPoolExists, key)
	}
	return err
}

// Load returns the current snapshot of a pool.
func (s *Store) Load(ctx context.Context, key poolkey.Key) (model.PoolSnapshot, error) {
	return scanSnapshot(s.pool.QueryRow(ctx, selectSnapshot, key.ID.Hex()), key)
}

// Update runs fn on the pool row while holding a row lock. Movements fn
// journals are inserted in the same transaction as the new snapshot.
func (s *Store) Update(ctx context.Context, key poolkey.Key, fn storage.UpdateFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanSnapshot(tx.QueryRow(ctx, selectSnapshot+` FOR UPDATE`, key.ID.Hex()), key)
	if err != nil {
		return err
	}
	next, err := fn(current, txJournal{tx: tx})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE pools SET
			reserve_a = $2::numeric,
			reserve_b = $3::numeric,
			lp_supply = $4::numeric,
			updated_at = now()
		WHERE pool_id = $1
	`,
		key.ID.Hex(),
		formatUint(next.ReserveA),
		formatUint(next.ReserveB),
		formatUint(next.LPSupply),
	); err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txJournal queues movement inserts on the update transaction.
type txJournal struct {
	tx pgx.Tx
}

func (j txJournal) Append(ctx context.Context, movements []model.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range movements {
		batch.Queue(`
			INSERT INTO pool_movements (pool_id, op, seq, account, token, kind, amount, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)
		`,
			m.Pool,
			m.Op,
			int64(m.Seq),
			m.Account,
			m.Token,
			string(m.Kind),
			formatUint(m.Amount),
			m.RecordedAt,
		)
	}

	br := j.tx.SendBatch(ctx, batch)
	defer br.Close()

	for range movements {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
	}
	return nil
}

// Movements returns the committed movements of a pool in insertion order.
func (s *Store) Movements(ctx context.Context, key poolkey.Key) ([]model.Movement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, op, seq, account, token, kind, amount::text, recorded_at
		FROM pool_movements WHERE pool_id = $1 ORDER BY id
	`, key.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		var (
			m      model.Movement
			seq    int64
			kind   string
			amount string
		)
		if err := rows.Scan(&m.Pool, &m.Op, &seq, &m.Account, &m.Token, &kind, &amount, &m.RecordedAt); err != nil {
			return nil, err
		}
		m.Seq = uint64(seq)
		m.Kind = model.MovementKind(kind)
		if m.Amount, err = parseUint(amount); err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

const selectSnapshot = `
	SELECT token_a, token_b, reserve_a::text, reserve_b::text, decimals_a, decimals_b, lp_supply::text, lp_decimals
	FROM pools WHERE pool_id = $1`

func scanSnapshot(row pgx.Row, key poolkey.Key) (model.PoolSnapshot, error) {
	var (
		tokenA, tokenB                   string
		reserveA, reserveB, supply       string
		decimalsA, decimalsB, lpDecimals int16
	)
	if err := row.Scan(&tokenA, &tokenB, &reserveA, &reserveB, &decimalsA, &decimalsB, &supply, &lpDecimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, key)
		}
		return model.PoolSnapshot{}, err
	}

	snap := model.PoolSnapshot{
		TokenA:     common.HexToAddress(tokenA),
		TokenB:     common.HexToAddress(tokenB),
		DecimalsA:  uint8(decimalsA),
		DecimalsB:  uint8(decimalsB),
		LPDecimals: uint8(lpDecimals),
	}
	var err error
	if snap.ReserveA, err = parseUint(reserveA); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("reserve_a: %w", err)
	}
	if snap.ReserveB, err = parseUint(reserveB); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("reserve_b: %w", err)
	}
	if snap.LPSupply, err = parseUint(supply); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("lp_supply: %w", err)
	}
	return snap, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(v string) (uint64, error) {
	return strconv.ParseUint(v, 10, 64)
}
