package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/auth"
)

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type TokenHandler struct {
	jwt TokenIssuer
}

func NewTokenHandler(jwt TokenIssuer) *TokenHandler {
	return &TokenHandler{jwt: jwt}
}

// Issue signs whatever identity the caller presents. The client has already
// authenticated the person with its login provider.
func (h *TokenHandler) Issue(ctx *gin.Context) {
	var req auth.Identity

	if !BindJSON(ctx, &req) {
		return
	}

	token, err := h.jwt.Issue(req)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "token signing failed", "err", err)
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}
