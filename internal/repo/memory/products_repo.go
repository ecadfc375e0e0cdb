package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

type ProductsRepo struct {
	mu    sync.RWMutex
	items map[string]product.Product
}

func NewProductsRepo() *ProductsRepo {
	return &ProductsRepo{
		items: make(map[string]product.Product),
	}
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	p.ID = uuid.NewString()

	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()

	return p, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (r *ProductsRepo) ListByOwner(ctx context.Context, email string) ([]product.Product, error) {
	return r.filtered(func(p product.Product) bool { return p.OwnerEmail == email }, product.Recent), nil
}

func (r *ProductsRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	if filter.Category != nil {
		category := *filter.Category
		return r.filtered(func(p product.Product) bool { return p.Category == category }, product.Recent), nil
	}

	return r.filtered(func(product.Product) bool { return true }, product.PendingFirst), nil
}

func (r *ProductsRepo) Upsert(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (repo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		onInsert.ID = id
		patch.Apply(&onInsert)
		r.items[id] = onInsert

		upserted := id
		return repo.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: &upserted}, nil
	}

	return r.applyLocked(existing, patch), nil
}

func (r *ProductsRepo) Patch(ctx context.Context, id string, patch product.Patch) (repo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return repo.UpdateResult{Acknowledged: true}, nil
	}

	return r.applyLocked(existing, patch), nil
}

func (r *ProductsRepo) applyLocked(existing product.Product, patch product.Patch) repo.UpdateResult {
	updated := existing
	updated.Tags = slices.Clone(existing.Tags)
	patch.Apply(&updated)

	res := repo.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if !product.SameContent(existing, updated) {
		r.items[existing.ID] = updated
		res.ModifiedCount = 1
	}
	return res
}

func (r *ProductsRepo) Delete(ctx context.Context, id string) (repo.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repo.DeleteResult{Acknowledged: true}, nil
	}

	delete(r.items, id)
	return repo.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (r *ProductsRepo) ListAcceptedPage(ctx context.Context, page, size int) ([]product.Product, error) {
	all := r.filtered(isAccepted, product.Recent)

	if size < 1 || page < 0 || len(all) == 0 || page > (len(all)-1)/size {
		return []product.Product{}, nil
	}

	start := page * size

	end := min(start+size, len(all))
	return all[start:end], nil
}

func (r *ProductsRepo) CountAccepted(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, p := range r.items {
		if isAccepted(p) {
			n++
		}
	}
	return n, nil
}

func (r *ProductsRepo) ListAccepted(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error) {
	cmp := product.Recent
	if sort == product.SortUpvotes {
		cmp = product.MostUpvoted
	}

	out := r.filtered(isAccepted, cmp)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductsRepo) filtered(keep func(product.Product) bool, cmp func(a, b product.Product) int) []product.Product {
	r.mu.RLock()
	out := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(out, cmp)
	return out
}

func isAccepted(p product.Product) bool {
	return p.Status == product.StatusAccepted
}
