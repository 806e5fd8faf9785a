package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLStore runs queries against a pgx pool.
type SQLStore struct {
	*Queries
	Pool *pgxpool.Pool
}

// NewStore wraps pool in a Store.
func NewStore(pool *pgxpool.Pool) *SQLStore {
	return &SQLStore{Queries: New(pool), Pool: pool}
}

// ExecTx runs fn inside a read-committed transaction. Row locks taken by
// fn are held until commit.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	if s == nil || s.Pool == nil {
		return errors.New("db: store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ Store = (*SQLStore)(nil)
