package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/auth"
	"github.com/techdiscoveria/discoveria/internal/authz"
	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/http/middlewares"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

var testJWT = auth.NewManager("handler-test-secret", time.Hour)

func bearer(t *testing.T, email string) string {
	t.Helper()

	tok, err := testJWT.Issue(auth.Identity{Email: email})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

// setupAuthedRouter mounts h behind the access guard.
func setupAuthedRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, middlewares.NewAuthMiddleware(testJWT).RequireAuth(), h)

	return r
}

func doRequest(r http.Handler, method, path, body, authorization string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

// Fake repository implementations of the handler store interfaces

type fakeUsersRepo struct {
	listFn          func(ctx context.Context) ([]user.User, error)
	getFn           func(ctx context.Context, email string) (user.User, error)
	createFn        func(ctx context.Context, u user.User) (user.User, bool, error)
	setRoleFn       func(ctx context.Context, id, role string) (repo.UpdateResult, error)
	setMembershipFn func(ctx context.Context, email, membership string) (repo.UpdateResult, error)
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []user.User{}, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) CreateIfAbsent(ctx context.Context, u user.User) (user.User, bool, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	u.ID = "u-1"
	return u, true, nil
}

func (f *fakeUsersRepo) SetRole(ctx context.Context, id, role string) (repo.UpdateResult, error) {
	if f.setRoleFn != nil {
		return f.setRoleFn(ctx, id, role)
	}
	return repo.UpdateResult{Acknowledged: true}, nil
}

func (f *fakeUsersRepo) SetMembership(ctx context.Context, email, membership string) (repo.UpdateResult, error) {
	if f.setMembershipFn != nil {
		return f.setMembershipFn(ctx, email, membership)
	}
	return repo.UpdateResult{Acknowledged: true}, nil
}

// roles builds a role lookup answering from a fixed email -> role table.
func roles(table map[string]string) *fakeUsersRepo {
	return &fakeUsersRepo{
		getFn: func(ctx context.Context, email string) (user.User, error) {
			role, ok := table[email]
			if !ok {
				return user.User{}, user.ErrNotFound
			}
			return user.User{ID: "id-" + email, Email: email, Role: role}, nil
		},
	}
}

func enforcingPolicy(table map[string]string) *authz.Policy {
	return authz.NewPolicy(roles(table), true)
}

type fakeProductsRepo struct {
	createFn      func(ctx context.Context, p product.Product) (product.Product, error)
	getFn         func(ctx context.Context, id string) (product.Product, error)
	listByOwnerFn func(ctx context.Context, email string) ([]product.Product, error)
	listFn        func(ctx context.Context, filter product.ListFilter) ([]product.Product, error)
	upsertFn      func(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (repo.UpdateResult, error)
	patchFn       func(ctx context.Context, id string, patch product.Patch) (repo.UpdateResult, error)
	deleteFn      func(ctx context.Context, id string) (repo.DeleteResult, error)
	pageFn        func(ctx context.Context, page, size int) ([]product.Product, error)
	countFn       func(ctx context.Context) (int64, error)
	acceptedFn    func(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error)
}

func (f *fakeProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	p.ID = "p-1"
	return p, nil
}

func (f *fakeProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return product.Product{}, product.ErrNotFound
}

func (f *fakeProductsRepo) ListByOwner(ctx context.Context, email string) ([]product.Product, error) {
	if f.listByOwnerFn != nil {
		return f.listByOwnerFn(ctx, email)
	}
	return []product.Product{}, nil
}

func (f *fakeProductsRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return []product.Product{}, nil
}

func (f *fakeProductsRepo) Upsert(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (repo.UpdateResult, error) {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, id, patch, onInsert)
	}
	return repo.UpdateResult{Acknowledged: true}, nil
}

func (f *fakeProductsRepo) Patch(ctx context.Context, id string, patch product.Patch) (repo.UpdateResult, error) {
	if f.patchFn != nil {
		return f.patchFn(ctx, id, patch)
	}
	return repo.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeProductsRepo) Delete(ctx context.Context, id string) (repo.DeleteResult, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return repo.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (f *fakeProductsRepo) ListAcceptedPage(ctx context.Context, page, size int) ([]product.Product, error) {
	if f.pageFn != nil {
		return f.pageFn(ctx, page, size)
	}
	return []product.Product{}, nil
}

func (f *fakeProductsRepo) CountAccepted(ctx context.Context) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx)
	}
	return 0, nil
}

func (f *fakeProductsRepo) ListAccepted(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error) {
	if f.acceptedFn != nil {
		return f.acceptedFn(ctx, sort, limit)
	}
	return []product.Product{}, nil
}

type fakePaymentsRepo struct {
	recordFn func(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error)
	listFn   func(ctx context.Context, email string) ([]payment.Payment, error)
}

func (f *fakePaymentsRepo) Record(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error) {
	if f.recordFn != nil {
		return f.recordFn(ctx, p, membership)
	}
	p.ID = "pay-1"
	p.UpgradeStatus = payment.UpgradeApplied
	return p, nil
}

func (f *fakePaymentsRepo) ListByEmail(ctx context.Context, email string) ([]payment.Payment, error) {
	if f.listFn != nil {
		return f.listFn(ctx, email)
	}
	return []payment.Payment{}, nil
}

func doRequestWithHeader(r http.Handler, method, path, key, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(key, value)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
