package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/cache"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/repo"
	"github.com/techdiscoveria/discoveria/internal/utils"
)

type ProductsStore interface {
	Create(ctx context.Context, p product.Product) (product.Product, error)
	GetByID(ctx context.Context, id string) (product.Product, error)
	ListByOwner(ctx context.Context, email string) ([]product.Product, error)
	List(ctx context.Context, filter product.ListFilter) ([]product.Product, error)
	Upsert(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (repo.UpdateResult, error)
	Patch(ctx context.Context, id string, patch product.Patch) (repo.UpdateResult, error)
	Delete(ctx context.Context, id string) (repo.DeleteResult, error)
	ListAcceptedPage(ctx context.Context, page, size int) ([]product.Product, error)
	CountAccepted(ctx context.Context) (int64, error)
	ListAccepted(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error)
}

type ProductsHandler struct {
	products ProductsStore
	policy   Authorizer
	cache    *cache.Cache
}

// NewProductsHandler wires the handler. A nil cache disables response caching.
func NewProductsHandler(products ProductsStore, policy Authorizer, c *cache.Cache) *ProductsHandler {
	return &ProductsHandler{products: products, policy: policy, cache: c}
}

func (h *ProductsHandler) Create(ctx *gin.Context) {
	var req product.CreateProductRequest

	if !BindJSON(ctx, &req) {
		return
	}

	p := product.NewFromCreateRequest(req)

	caller := callerEmail(ctx)
	if p.OwnerEmail == "" {
		p.OwnerEmail = caller
	} else if err := h.policy.Authorize(ctx.Request.Context(), caller, p.OwnerEmail); err != nil {
		respondAuthzFailure(ctx, err)
		return
	}

	created, err := h.products.Create(ctx.Request.Context(), p)
	if err != nil {
		respondStoreFailure(ctx, "Could not create product", err)
		return
	}

	ctx.JSON(http.StatusCreated, repo.Inserted(created.ID))
}

func (h *ProductsHandler) ListByOwner(ctx *gin.Context) {
	email := ctx.Param("email")

	if err := h.policy.Authorize(ctx.Request.Context(), callerEmail(ctx), email); err != nil {
		respondAuthzFailure(ctx, err)
		return
	}

	items, err := h.products.ListByOwner(ctx.Request.Context(), email)
	if err != nil {
		respondStoreFailure(ctx, "Could not list products", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// List serves the moderation queue: one category, or every product with pending ones first.
func (h *ProductsHandler) List(ctx *gin.Context) {
	var filter product.ListFilter

	if category, ok := ctx.GetQuery("category"); ok && category != "" {
		filter.Category = &category
	}

	items, err := h.products.List(ctx.Request.Context(), filter)
	if err != nil {
		respondStoreFailure(ctx, "Could not list products", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// Upsert merges the body into the product with the given id, creating it for the caller if absent.
func (h *ProductsHandler) Upsert(ctx *gin.Context) {
	id := ctx.Param("id")

	var patch product.Patch
	if !BindJSON(ctx, &patch) {
		return
	}
	if patch.IsEmpty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	caller := callerEmail(ctx)

	existing, err := h.products.GetByID(ctx.Request.Context(), id)
	switch {
	case err == nil:
		if !h.authorizePatch(ctx, existing, patch) {
			return
		}
	case errors.Is(err, product.ErrNotFound):
		if patch.TouchesStatus() {
			if err := h.policy.RequireAdmin(ctx.Request.Context(), caller); err != nil {
				respondAuthzFailure(ctx, err)
				return
			}
		}
	case errors.Is(err, product.ErrInvalidID):
		RespondBadRequest(ctx, "Invalid product id", nil)
		return
	default:
		respondStoreFailure(ctx, "Could not update product", err)
		return
	}

	onInsert := product.Product{
		OwnerEmail: caller,
		Tags:       []string{},
		Status:     product.StatusPending,
		Timestamp:  time.Now().UTC(),
	}

	res, err := h.products.Upsert(ctx.Request.Context(), id, patch, onInsert)
	if err != nil {
		if errors.Is(err, product.ErrInvalidID) {
			RespondBadRequest(ctx, "Invalid product id", nil)
			return
		}
		respondStoreFailure(ctx, "Could not update product", err)
		return
	}

	h.cache.Clear()
	ctx.JSON(http.StatusOK, res)
}

func (h *ProductsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if h.policy.Enforcing() {
		existing, err := h.products.GetByID(ctx.Request.Context(), id)
		switch {
		case errors.Is(err, product.ErrNotFound):
			ctx.JSON(http.StatusOK, repo.DeleteResult{Acknowledged: true})
			return
		case errors.Is(err, product.ErrInvalidID):
			RespondBadRequest(ctx, "Invalid product id", nil)
			return
		case err != nil:
			respondStoreFailure(ctx, "Could not delete product", err)
			return
		}

		if err := h.policy.Authorize(ctx.Request.Context(), callerEmail(ctx), existing.OwnerEmail); err != nil {
			respondAuthzFailure(ctx, err)
			return
		}
	}

	res, err := h.products.Delete(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrInvalidID) {
			RespondBadRequest(ctx, "Invalid product id", nil)
			return
		}
		respondStoreFailure(ctx, "Could not delete product", err)
		return
	}

	h.cache.Clear()
	ctx.JSON(http.StatusOK, res)
}

// parsePage reads ?page=&size=. page is zero based; size defaults to product.DefaultPageSize
// and is capped at product.MaxPageSize.
func parsePage(ctx *gin.Context) (page, size int, ok bool) {
	page, size = 0, product.DefaultPageSize

	if raw := ctx.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"field": "page", "rule": "min", "param": "0"})
			return 0, 0, false
		}
		page = n
	}

	if raw := ctx.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"field": "size", "rule": "min", "param": "1"})
			return 0, 0, false
		}
		size = min(n, product.MaxPageSize)
	}

	// the store offset is page*size and must not overflow
	if page > math.MaxInt/size {
		RespondBadRequest(ctx, "Invalid query parameter", gin.H{"field": "page", "rule": "max", "param": strconv.Itoa(math.MaxInt / size)})
		return 0, 0, false
	}

	return page, size, true
}

func (h *ProductsHandler) Page(ctx *gin.Context) {
	page, size, ok := parsePage(ctx)
	if !ok {
		return
	}

	items, err := h.products.ListAcceptedPage(ctx.Request.Context(), page, size)
	if err != nil {
		respondStoreFailure(ctx, "Could not list products", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *ProductsHandler) Count(ctx *gin.Context) {
	validator := countValidator.withMaxAge(h.cache.TTL())

	if cached, ok := h.cache.Get(utils.ProductsCountCacheKey); ok {
		RespondJSONWithETag(ctx, http.StatusOK, cached, validator)
		return
	}

	n, err := h.products.CountAccepted(ctx.Request.Context())
	if err != nil {
		respondStoreFailure(ctx, "Could not count products", err)
		return
	}

	payload := gin.H{"count": n}
	h.cache.Set(utils.ProductsCountCacheKey, payload)
	RespondJSONWithETag(ctx, http.StatusOK, payload, validator)
}

// Browse serves the public Featured (newest) and Trending (most upvoted) lists.
func (h *ProductsHandler) Browse(ctx *gin.Context) {
	category := ctx.Query("category")

	sort, ok := product.SortForCategory(category)
	if !ok {
		RespondBadRequest(ctx, "Unknown category", gin.H{
			"field": "category",
			"rule":  "oneof",
			"param": product.CategoryFeatured + " " + product.CategoryTrending,
		})
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"field": "limit", "rule": "min", "param": "0"})
			return
		}
		limit = min(n, product.MaxPageSize)
	}

	key := utils.BuildProductsBrowseCacheKey(category, limit)
	validator := listValidator.withMaxAge(h.cache.TTL())

	if cached, ok := h.cache.Get(key); ok {
		RespondJSONWithETag(ctx, http.StatusOK, cached, validator)
		return
	}

	items, err := h.products.ListAccepted(ctx.Request.Context(), sort, limit)
	if err != nil {
		respondStoreFailure(ctx, "Could not list products", err)
		return
	}

	h.cache.Set(key, items)
	RespondJSONWithETag(ctx, http.StatusOK, items, validator)
}

func (h *ProductsHandler) Get(ctx *gin.Context) {
	p, err := h.products.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			RespondNotFound(ctx, "Product not found")
		case errors.Is(err, product.ErrInvalidID):
			RespondBadRequest(ctx, "Invalid product id", nil)
		default:
			respondStoreFailure(ctx, "Could not fetch product", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, p)
}

// Patch merges the allowed fields of the body into the product.
func (h *ProductsHandler) Patch(ctx *gin.Context) {
	id := ctx.Param("id")

	var patch product.Patch
	if !BindJSON(ctx, &patch) {
		return
	}
	if patch.IsEmpty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	if h.policy.Enforcing() {
		existing, err := h.products.GetByID(ctx.Request.Context(), id)
		switch {
		case errors.Is(err, product.ErrNotFound):
			RespondNotFound(ctx, "Product not found")
			return
		case errors.Is(err, product.ErrInvalidID):
			RespondBadRequest(ctx, "Invalid product id", nil)
			return
		case err != nil:
			respondStoreFailure(ctx, "Could not update product", err)
			return
		}

		if !h.authorizePatch(ctx, existing, patch) {
			return
		}
	}

	res, err := h.products.Patch(ctx.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, product.ErrInvalidID) {
			RespondBadRequest(ctx, "Invalid product id", nil)
			return
		}
		respondStoreFailure(ctx, "Could not update product", err)
		return
	}

	h.cache.Clear()
	ctx.JSON(http.StatusOK, res)
}

// authorizePatch applies the field policy: moderation needs an admin, a bare upvote needs
// only an authenticated caller, anything else needs the owner or an admin.
func (h *ProductsHandler) authorizePatch(ctx *gin.Context, existing product.Product, patch product.Patch) bool {
	caller := callerEmail(ctx)

	var err error
	switch {
	case patch.TouchesStatus():
		err = h.policy.RequireAdmin(ctx.Request.Context(), caller)
	case patch.OnlyUpvotes():
		err = nil
	default:
		err = h.policy.Authorize(ctx.Request.Context(), caller, existing.OwnerEmail)
	}

	if err != nil {
		respondAuthzFailure(ctx, err)
		return false
	}
	return true
}
