// Package postgres implements the repo contract on top of a pgx pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type base struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	if b.prom != nil {
		return b.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// NewStore wires the three repositories on pool. Closing the store closes the pool.
func NewStore(pool *pgxpool.Pool, prom *observability.Prom) *repo.Store {
	users := NewUsersRepo(pool, prom)

	return repo.NewStore(
		users,
		NewProductsRepo(pool, prom),
		NewPaymentsRepo(pool, prom),
		pool.Ping,
		func(context.Context) error {
			pool.Close()
			return nil
		},
	)
}

// countUpdate runs an UPDATE guarded by a "value differs" predicate and reports how many
// rows matched the key and how many actually changed.
const countUpdate = `
	WITH target AS (
		SELECT id, %[1]s AS current
		FROM %[2]s
		WHERE %[3]s = $1
		FOR UPDATE
	), upd AS (
		UPDATE %[2]s t
		SET %[1]s = $2, updated_at = NOW()
		FROM target
		WHERE t.id = target.id AND target.current <> $2
		RETURNING t.id
	)
	SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM upd)
`
