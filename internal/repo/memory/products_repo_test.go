package memory

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
)

func seedProducts(t *testing.T, r *ProductsRepo, n int) {
	t.Helper()

	statuses := []product.Status{product.StatusAccepted, product.StatusPending, product.StatusRejected}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		_, err := r.Create(context.Background(), product.Product{
			Name:       fmt.Sprintf("p-%d", i),
			OwnerEmail: fmt.Sprintf("owner%d@x.com", i%3),
			Category:   []string{"AI", "Dev"}[i%2],
			Status:     statuses[i%len(statuses)],
			Upvotes:    (i * 7) % 11,
			Timestamp:  base.Add(time.Duration(i%5) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func TestListAcceptedPage_PagesConcatenate(t *testing.T) {
	ctx := context.Background()
	r := NewProductsRepo()
	seedProducts(t, r, 40)

	all, err := r.ListAccepted(ctx, product.SortRecent, 0)
	require.NoError(t, err)

	count, err := r.CountAccepted(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(len(all)), count)

	for _, size := range []int{1, 3, 6, 100} {
		var got []product.Product
		for page := 0; page*size < len(all)+size; page++ {
			items, err := r.ListAcceptedPage(ctx, page, size)
			require.NoError(t, err)
			require.LessOrEqual(t, len(items), size)
			got = append(got, items...)

			want := min((page+1)*size, len(all))
			require.Equal(t, all[:want], got, "size=%d page=%d", size, page)
		}
	}
}

func TestListAcceptedPage_PastEndIsEmpty(t *testing.T) {
	r := NewProductsRepo()
	seedProducts(t, r, 6)

	items, err := r.ListAcceptedPage(context.Background(), 50, 6)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestListAcceptedPage_HugePageIsEmpty(t *testing.T) {
	r := NewProductsRepo()
	seedProducts(t, r, 6)

	items, err := r.ListAcceptedPage(context.Background(), math.MaxInt/3, 3)
	require.NoError(t, err)
	require.Empty(t, items)

	items, err = r.ListAcceptedPage(context.Background(), 3074457345618258603, 3)
	require.NoError(t, err)
	require.Empty(t, items)

	empty := NewProductsRepo()
	items, err = empty.ListAcceptedPage(context.Background(), 0, 6)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestList_PendingFirst(t *testing.T) {
	r := NewProductsRepo()
	seedProducts(t, r, 30)

	items, err := r.List(context.Background(), product.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 30)

	seenOther := false
	for _, p := range items {
		if p.Status != product.StatusPending {
			seenOther = true
			continue
		}
		require.False(t, seenOther, "pending product %s after a non-pending one", p.ID)
	}
}

func TestList_ByCategory(t *testing.T) {
	r := NewProductsRepo()
	seedProducts(t, r, 10)

	category := "AI"
	items, err := r.List(context.Background(), product.ListFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, items, 5)
	for _, p := range items {
		require.Equal(t, "AI", p.Category)
	}
}

func TestListAccepted_TrendingByUpvotes(t *testing.T) {
	r := NewProductsRepo()
	seedProducts(t, r, 30)

	items, err := r.ListAccepted(context.Background(), product.SortUpvotes, 4)
	require.NoError(t, err)
	require.Len(t, items, 4)

	for i := 1; i < len(items); i++ {
		require.GreaterOrEqual(t, items[i-1].Upvotes, items[i].Upvotes)
		require.Equal(t, product.StatusAccepted, items[i].Status)
	}
}

func TestUpsertPatchDelete(t *testing.T) {
	ctx := context.Background()
	r := NewProductsRepo()

	name := "Widget"
	res, err := r.Upsert(ctx, "fixed-id", product.Patch{Name: &name}, product.Product{OwnerEmail: "a@x.com", Status: product.StatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.UpsertedCount)
	require.Equal(t, "fixed-id", *res.UpsertedID)

	got, err := r.GetByID(ctx, "fixed-id")
	require.NoError(t, err)
	require.Equal(t, "Widget", got.Name)
	require.Equal(t, "a@x.com", got.OwnerEmail)

	// same value again: matched but not modified
	res, err = r.Patch(ctx, "fixed-id", product.Patch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.MatchedCount)
	require.Equal(t, int64(0), res.ModifiedCount)

	votes := 3
	res, err = r.Patch(ctx, "fixed-id", product.Patch{Upvotes: &votes})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.ModifiedCount)

	res, err = r.Patch(ctx, "missing", product.Patch{Upvotes: &votes})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.MatchedCount)

	del, err := r.Delete(ctx, "fixed-id")
	require.NoError(t, err)
	require.Equal(t, int64(1), del.DeletedCount)

	_, err = r.GetByID(ctx, "fixed-id")
	require.ErrorIs(t, err, product.ErrNotFound)
}
