package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/techdiscoveria/discoveria/internal/authz"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/http/handlers"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

func TestRegisterUserHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createFn   func(ctx context.Context, u user.User) (user.User, bool, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "new user",
			body: `{"name":"Ada","email":"ada@x.com"}`,
			createFn: func(ctx context.Context, u user.User) (user.User, bool, error) {
				if u.Role != user.RoleUser || u.Membership != user.MembershipNone {
					return user.User{}, false, errors.New("defaults not applied")
				}
				u.ID = "u-42"
				return u, true, nil
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"insertedId":"u-42"`,
		},
		{
			name: "already registered",
			body: `{"email":"ada@x.com"}`,
			createFn: func(ctx context.Context, u user.User) (user.User, bool, error) {
				return user.User{}, false, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `"insertedId":null`,
		},
		{
			name:       "invalid email",
			body:       `{"email":"nope"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			body: `{"email":"ada@x.com"}`,
			createFn: func(ctx context.Context, u user.User) (user.User, bool, error) {
				return user.User{}, false, errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewUsersHandler(&fakeUsersRepo{createFn: tt.createFn}, authz.NewPolicy(nil, false))
			r := setupRouter(http.MethodPost, "/users", h.Register)

			w := doRequest(r, http.MethodPost, "/users", tt.body, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("expected body to contain %s, got %s", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestGetUserHandlers_OwnerOrAdmin(t *testing.T) {
	table := map[string]string{
		"owner@x.com": user.RoleUser,
		"other@x.com": user.RoleUser,
		"admin@x.com": user.RoleAdmin,
	}
	users := roles(table)
	h := handlers.NewUsersHandler(users, enforcingPolicy(table))

	guard := setupAuthedRouter(http.MethodGet, "/users/role/:email", h.GetRole)

	tests := []struct {
		name       string
		caller     string
		target     string
		wantStatus int
	}{
		{name: "owner", caller: "owner@x.com", target: "owner@x.com", wantStatus: http.StatusOK},
		{name: "admin", caller: "admin@x.com", target: "owner@x.com", wantStatus: http.StatusOK},
		{name: "someone else", caller: "other@x.com", target: "owner@x.com", wantStatus: http.StatusForbidden},
		{name: "admin reads missing user", caller: "admin@x.com", target: "ghost@x.com", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(guard, http.MethodGet, "/users/role/"+tt.target, "", bearer(t, tt.caller))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && !strings.Contains(w.Body.String(), `"role":"user"`) {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestGetUserHandler_CompatModeIsOpen(t *testing.T) {
	users := roles(map[string]string{"owner@x.com": user.RoleUser})
	h := handlers.NewUsersHandler(users, authz.NewPolicy(users, false))
	r := setupAuthedRouter(http.MethodGet, "/users/:email", h.GetByEmail)

	w := doRequest(r, http.MethodGet, "/users/owner@x.com", "", bearer(t, "stranger@x.com"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"email":"owner@x.com"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestPatchUserHandler_DispatchesOnKey(t *testing.T) {
	var gotRoleID, gotRole, gotEmail, gotMembership string

	users := roles(map[string]string{"ada@x.com": user.RoleUser})
	users.setRoleFn = func(ctx context.Context, id, role string) (repo.UpdateResult, error) {
		gotRoleID, gotRole = id, role
		return repo.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
	}
	users.setMembershipFn = func(ctx context.Context, email, membership string) (repo.UpdateResult, error) {
		gotEmail, gotMembership = email, membership
		return repo.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
	}

	h := handlers.NewUsersHandler(users, authz.NewPolicy(users, true))
	r := setupAuthedRouter(http.MethodPatch, "/users/:key", h.Patch)

	w := doRequest(r, http.MethodPatch, "/users/65f0c0ffee", `{"role":"admin"}`, bearer(t, "admin@x.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("role patch: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if gotRoleID != "65f0c0ffee" || gotRole != user.RoleAdmin {
		t.Fatalf("role patch reached store with %q/%q", gotRoleID, gotRole)
	}

	w = doRequest(r, http.MethodPatch, "/users/ada@x.com", `{"Membership":"Subscribed"}`, bearer(t, "ada@x.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("membership patch: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if gotEmail != "ada@x.com" || gotMembership != user.MembershipSubscribed {
		t.Fatalf("membership patch reached store with %q/%q", gotEmail, gotMembership)
	}
	if !strings.Contains(w.Body.String(), `"modifiedCount":1`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestPatchUserHandler_MembershipOfSomeoneElseForbidden(t *testing.T) {
	called := false
	users := roles(map[string]string{"ada@x.com": user.RoleUser, "eve@x.com": user.RoleUser})
	users.setMembershipFn = func(ctx context.Context, email, membership string) (repo.UpdateResult, error) {
		called = true
		return repo.UpdateResult{}, nil
	}

	h := handlers.NewUsersHandler(users, authz.NewPolicy(users, true))
	r := setupAuthedRouter(http.MethodPatch, "/users/:key", h.Patch)

	w := doRequest(r, http.MethodPatch, "/users/ada@x.com", `{"Membership":"Subscribed"}`, bearer(t, "eve@x.com"))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", w.Code, w.Body.String())
	}
	if called {
		t.Fatalf("store must not be called on a forbidden patch")
	}
}

func TestPatchUserHandler_InvalidRole(t *testing.T) {
	h := handlers.NewUsersHandler(&fakeUsersRepo{}, authz.NewPolicy(nil, false))
	r := setupRouter(http.MethodPatch, "/users/:key", h.Patch)

	w := doRequest(r, http.MethodPatch, "/users/u-1", `{"role":"root"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestListUsersHandler(t *testing.T) {
	h := handlers.NewUsersHandler(&fakeUsersRepo{
		listFn: func(ctx context.Context) ([]user.User, error) {
			return []user.User{{ID: "1", Email: "a@x.com"}, {ID: "2", Email: "b@x.com"}}, nil
		},
	}, authz.NewPolicy(nil, false))
	r := setupRouter(http.MethodGet, "/users", h.List)

	w := doRequest(r, http.MethodGet, "/users", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "a@x.com") || !strings.Contains(w.Body.String(), "b@x.com") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
