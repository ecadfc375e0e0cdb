package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
)

type RoleLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// RoleGuard reads the caller's role from the store on every request.
type RoleGuard struct {
	users RoleLookup
}

func NewRoleGuard(users RoleLookup) *RoleGuard {
	return &RoleGuard{users: users}
}

// RequireAdmin must run after RequireAuth.
func (g *RoleGuard) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := EmailFromContext(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", UnauthorizedMessage)
			return
		}

		u, err := g.users.GetByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				abortWithError(c, http.StatusForbidden, "forbidden", "Forbidden Access")
				return
			}

			slog.Default().ErrorContext(c.Request.Context(), "role lookup failed", "email", email, "err", err)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Failed to verify role")
			return
		}

		if !u.IsAdmin() {
			abortWithError(c, http.StatusForbidden, "forbidden", "Forbidden Access")
			return
		}

		c.Next()
	}
}
