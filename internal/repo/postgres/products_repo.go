package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

const productColumns = `id, product_name, product_image, description, tags, external_link,
	owner_name, owner_image, owner_email, category, status, upvote, ts`

type ProductsRepo struct {
	base
}

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{base{pool: pool, prom: prom}}
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var (
		p      product.Product
		status string
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Image, &p.Description, &p.Tags, &p.ExternalLink,
		&p.OwnerName, &p.OwnerImage, &p.OwnerEmail, &p.Category, &status, &p.Upvotes, &p.Timestamp,
	)
	p.Status = product.Status(status)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}

func (r *ProductsRepo) query(ctx context.Context, op, sql string, args ...any) ([]product.Product, error) {
	var out []product.Product

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]product.Product, 0)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertProduct(ctx context.Context, q execer, p product.Product) error {
	_, err := q.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, p.ID, p.Name, p.Image, p.Description, p.Tags, p.ExternalLink,
		p.OwnerName, p.OwnerImage, p.OwnerEmail, p.Category, string(p.Status), p.Upvotes, p.Timestamp)
	return err
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	p.ID = uuid.NewString()

	err := r.observe("products.create", func() error {
		return insertProduct(ctx, r.pool, p)
	})

	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	var p product.Product

	err := r.observe("products.get_by_id", func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) ListByOwner(ctx context.Context, email string) ([]product.Product, error) {
	return r.query(ctx, "products.list_by_owner",
		`SELECT `+productColumns+` FROM products WHERE owner_email = $1 ORDER BY ts DESC, id ASC`, email)
}

func (r *ProductsRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	if filter.Category != nil {
		return r.query(ctx, "products.list_by_category",
			`SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY ts DESC, id ASC`, *filter.Category)
	}

	return r.query(ctx, "products.list_pending_first", `
		SELECT `+productColumns+`
		FROM products
		ORDER BY CASE WHEN status = 'pending' THEN 0 ELSE 1 END, ts DESC, id ASC
	`)
}

func (r *ProductsRepo) Upsert(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (repo.UpdateResult, error) {
	var res repo.UpdateResult

	err := r.observe("products.upsert", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			existing, err := scanProduct(tx.QueryRow(ctx,
				`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))

			if errors.Is(err, pgx.ErrNoRows) {
				onInsert.ID = id
				patch.Apply(&onInsert)
				if err := insertProduct(ctx, tx, onInsert); err != nil {
					return err
				}
				upserted := id
				res = repo.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: &upserted}
				return nil
			}
			if err != nil {
				return err
			}

			res, err = applyPatch(ctx, tx, existing, patch)
			return err
		})
	})

	if err != nil {
		return repo.UpdateResult{}, err
	}
	return res, nil
}

func (r *ProductsRepo) Patch(ctx context.Context, id string, patch product.Patch) (repo.UpdateResult, error) {
	var res repo.UpdateResult

	err := r.observe("products.patch", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			existing, err := scanProduct(tx.QueryRow(ctx,
				`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))

			if errors.Is(err, pgx.ErrNoRows) {
				res = repo.UpdateResult{Acknowledged: true}
				return nil
			}
			if err != nil {
				return err
			}

			res, err = applyPatch(ctx, tx, existing, patch)
			return err
		})
	})

	if err != nil {
		return repo.UpdateResult{}, err
	}
	return res, nil
}

func applyPatch(ctx context.Context, tx pgx.Tx, existing product.Product, patch product.Patch) (repo.UpdateResult, error) {
	updated := existing
	patch.Apply(&updated)

	res := repo.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if product.SameContent(existing, updated) {
		return res, nil
	}

	_, err := tx.Exec(ctx, `
		UPDATE products
		SET product_name = $2, product_image = $3, description = $4, tags = $5,
		    external_link = $6, owner_name = $7, owner_image = $8, category = $9,
		    status = $10, upvote = $11
		WHERE id = $1
	`, updated.ID, updated.Name, updated.Image, updated.Description, updated.Tags,
		updated.ExternalLink, updated.OwnerName, updated.OwnerImage, updated.Category,
		string(updated.Status), updated.Upvotes)
	if err != nil {
		return repo.UpdateResult{}, err
	}

	res.ModifiedCount = 1
	return res, nil
}

func (r *ProductsRepo) Delete(ctx context.Context, id string) (repo.DeleteResult, error) {
	var deleted int64

	err := r.observe("products.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		deleted = tag.RowsAffected()
		return err
	})

	if err != nil {
		return repo.DeleteResult{}, err
	}
	return repo.DeleteResult{Acknowledged: true, DeletedCount: deleted}, nil
}

func (r *ProductsRepo) ListAcceptedPage(ctx context.Context, page, size int) ([]product.Product, error) {
	return r.query(ctx, "products.list_accepted_page", `
		SELECT `+productColumns+`
		FROM products
		WHERE status = 'Accepted'
		ORDER BY ts DESC, id ASC
		LIMIT $1 OFFSET $2
	`, size, page*size)
}

func (r *ProductsRepo) CountAccepted(ctx context.Context) (int64, error) {
	var n int64

	err := r.observe("products.count_accepted", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE status = 'Accepted'`).Scan(&n)
	})

	return n, err
}

func (r *ProductsRepo) ListAccepted(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error) {
	order := `ts DESC, id ASC`
	if sort == product.SortUpvotes {
		order = `upvote DESC, ts DESC, id ASC`
	}

	// LIMIT NULL means no limit
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	return r.query(ctx, "products.list_accepted", `
		SELECT `+productColumns+`
		FROM products
		WHERE status = 'Accepted'
		ORDER BY `+order+`
		LIMIT $1
	`, lim)
}
