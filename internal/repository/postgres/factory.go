package postgres

import (
	"context"
	"errors"
	"fmt"

	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the part of pgxpool.Pool and pgx.Tx the repositories need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Repositories struct {
	pool *pgxpool.Pool
	inTx bool

	accounts     *accountsRepo
	transactions *transactionsRepo
	auditLogs    *auditLogsRepo
}

var _ repo.Store = (*Repositories)(nil)

func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return bind(pool, pool, false)
}

func bind(pool *pgxpool.Pool, q querier, inTx bool) *Repositories {
	return &Repositories{
		pool:         pool,
		inTx:         inTx,
		accounts:     &accountsRepo{q},
		transactions: &transactionsRepo{q},
		auditLogs:    &auditLogsRepo{q},
	}
}

func (r *Repositories) Accounts() repo.Accounts         { return r.accounts }
func (r *Repositories) Transactions() repo.Transactions { return r.transactions }
func (r *Repositories) AuditLogs() repo.AuditLogs       { return r.auditLogs }

// WithTx runs fn inside one serializable pgx transaction. Nested calls reuse
// the outer transaction.
func (r *Repositories) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapErr(err))
	}
	if err := fn(bind(r.pool, tx, true)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		err = mapErr(err)
		if errors.Is(err, repo.ErrConflict) {
			return err
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
