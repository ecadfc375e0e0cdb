package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/actorctx"
	"github.com/techdiscoveria/discoveria/internal/auth"
)

// UnauthorizedMessage is the single message returned for every authentication failure.
const UnauthorizedMessage = "Unauthorized Access"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth admits requests carrying a valid "Bearer <token>" header.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		scheme, raw, found := strings.Cut(authHeader, " ")
		raw = strings.TrimSpace(raw)

		if !found || scheme != "Bearer" || raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", UnauthorizedMessage)
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", UnauthorizedMessage)
			return
		}

		c.Set(ctxClaimsKey, claims)
		c.Set(ctxEmailKey, claims.Email)
		c.Request = c.Request.WithContext(actorctx.WithEmail(c.Request.Context(), claims.Email))

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok && email != ""
}

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}
