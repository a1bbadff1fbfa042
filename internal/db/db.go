package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// TxManager runs fn inside one unit of work. fn's Querier is bound to the
// transaction; returning an error rolls every write back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(Querier) error) error
}

// Store combines non-transactional reads with transactional units of work.
type Store interface {
	Querier
	TxManager
}

// PoolStore is the Postgres-backed Store.
type PoolStore struct {
	*Queries
	Pool *pgxpool.Pool
}

// NewPoolStore wraps a pgx pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{Queries: New(pool), Pool: pool}
}

// WithinTx implements TxManager using a read-committed transaction. Row locks
// taken with SELECT ... FOR UPDATE are held until fn returns.
func (s *PoolStore) WithinTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ Store = (*PoolStore)(nil)
