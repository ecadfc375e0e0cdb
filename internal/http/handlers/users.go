package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

type UsersStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	CreateIfAbsent(ctx context.Context, u user.User) (user.User, bool, error)
	SetRole(ctx context.Context, id, role string) (repo.UpdateResult, error)
	SetMembership(ctx context.Context, email, membership string) (repo.UpdateResult, error)
}

// Authorizer is the owner-or-admin policy. *authz.Policy implements it.
type Authorizer interface {
	Enforcing() bool
	Authorize(ctx context.Context, callerEmail, ownerEmail string) error
	RequireAdmin(ctx context.Context, callerEmail string) error
}

type UsersHandler struct {
	users  UsersStore
	policy Authorizer
}

func NewUsersHandler(users UsersStore, policy Authorizer) *UsersHandler {
	return &UsersHandler{users: users, policy: policy}
}

// IsEmailKey tells the two PATCH /users/:key forms apart. Emails always contain "@",
// store ids never do.
func IsEmailKey(ctx *gin.Context) bool {
	return strings.Contains(ctx.Param("key"), "@")
}

func (h *UsersHandler) List(ctx *gin.Context) {
	users, err := h.users.List(ctx.Request.Context())
	if err != nil {
		respondStoreFailure(ctx, "Could not list users", err)
		return
	}

	ctx.JSON(http.StatusOK, users)
}

func (h *UsersHandler) loadAuthorized(ctx *gin.Context) (user.User, bool) {
	email := user.NormalizeEmail(ctx.Param("email"))

	if err := h.policy.Authorize(ctx.Request.Context(), callerEmail(ctx), email); err != nil {
		respondAuthzFailure(ctx, err)
		return user.User{}, false
	}

	u, err := h.users.GetByEmail(ctx.Request.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return user.User{}, false
		}
		respondStoreFailure(ctx, "Could not fetch user", err)
		return user.User{}, false
	}

	return u, true
}

func (h *UsersHandler) GetByEmail(ctx *gin.Context) {
	u, ok := h.loadAuthorized(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) GetRole(ctx *gin.Context) {
	u, ok := h.loadAuthorized(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"role": u.Role})
}

// Register creates the user unless the email is already known. Repeating the call is harmless.
func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	created, inserted, err := h.users.CreateIfAbsent(ctx.Request.Context(), user.NewFromCreateRequest(req))
	if err != nil {
		respondStoreFailure(ctx, "Could not register user", err)
		return
	}

	if !inserted {
		ctx.JSON(http.StatusOK, gin.H{
			"message":    "User Already Exist",
			"insertedId": nil,
		})
		return
	}

	ctx.JSON(http.StatusCreated, repo.Inserted(created.ID))
}

// Patch handles both PATCH /users/:key forms: a role change addressed by user id and a
// membership change addressed by email.
func (h *UsersHandler) Patch(ctx *gin.Context) {
	if IsEmailKey(ctx) {
		h.setMembership(ctx)
		return
	}
	h.setRole(ctx)
}

func (h *UsersHandler) setRole(ctx *gin.Context) {
	var req user.UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.users.SetRole(ctx.Request.Context(), ctx.Param("key"), req.Role)
	if err != nil {
		respondStoreFailure(ctx, "Could not update role", err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *UsersHandler) setMembership(ctx *gin.Context) {
	email := user.NormalizeEmail(ctx.Param("key"))

	if err := h.policy.Authorize(ctx.Request.Context(), callerEmail(ctx), email); err != nil {
		respondAuthzFailure(ctx, err)
		return
	}

	var req user.UpdateMembershipRequest

	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.users.SetMembership(ctx.Request.Context(), email, req.Membership)
	if err != nil {
		respondStoreFailure(ctx, "Could not update membership", err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}
