package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// withTx runs fn inside a transaction, committing when fn succeeds and rolling
// back otherwise.
func (r *Repo) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
