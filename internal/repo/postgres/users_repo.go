package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

const userColumns = `id, name, email, photo, role, membership, created_at, updated_at`

type UsersRepo struct {
	base
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{pool: pool, prom: prom}}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.Membership, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]user.User, 0)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) CreateIfAbsent(ctx context.Context, u user.User) (user.User, bool, error) {
	u.ID = uuid.NewString()

	err := r.observe("users.create_if_absent", func() error {
		return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, photo, role, membership, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`, u.ID, u.Name, u.Email, u.Photo, u.Role, u.Membership, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, false, nil
		}
		return user.User{}, false, err
	}
	return u, true, nil
}

func (r *UsersRepo) SetRole(ctx context.Context, id, role string) (repo.UpdateResult, error) {
	return r.setColumn(ctx, "users.set_role", "role", "id", id, role)
}

func (r *UsersRepo) SetMembership(ctx context.Context, email, membership string) (repo.UpdateResult, error) {
	return r.setColumn(ctx, "users.set_membership", "membership", "email", email, membership)
}

func (r *UsersRepo) setColumn(ctx context.Context, op, column, key, keyValue, value string) (repo.UpdateResult, error) {
	var matched, modified int64

	err := r.observe(op, func() error {
		q := fmt.Sprintf(countUpdate, column, "users", key)
		return r.pool.QueryRow(ctx, q, keyValue, value).Scan(&matched, &modified)
	})

	if err != nil {
		return repo.UpdateResult{}, err
	}
	return repo.UpdateResult{Acknowledged: true, MatchedCount: matched, ModifiedCount: modified}, nil
}

func (r *UsersRepo) EnsureAdmin(ctx context.Context, email, name string) error {
	return r.observe("users.ensure_admin", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, role, membership)
		VALUES ($1, $2, $3, 'admin', 'none')
		ON CONFLICT (email) DO UPDATE
		SET role = 'admin', updated_at = NOW()
	`, uuid.NewString(), name, email)
		return err
	})
}
