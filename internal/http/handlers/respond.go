package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/authz"
	"github.com/techdiscoveria/discoveria/internal/http/middlewares"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", middlewares.UnauthorizedMessage, nil)
}

func RespondForbidden(ctx *gin.Context) {
	RespondError(ctx, http.StatusForbidden, "forbidden", "Forbidden Access", nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondBadGateway(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusBadGateway, code, message, nil)
}

// respondStoreFailure logs the cause and answers 500. The cause never reaches the client.
func respondStoreFailure(ctx *gin.Context, message string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), message, "err", err, "route", ctx.FullPath())
	RespondInternal(ctx, message)
}

// respondAuthzFailure maps a policy decision onto 403, or 500 when the role lookup failed.
func respondAuthzFailure(ctx *gin.Context, err error) {
	if errors.Is(err, authz.ErrForbidden) {
		RespondForbidden(ctx)
		return
	}
	respondStoreFailure(ctx, "Failed to verify access", err)
}

// callerEmail returns the authenticated email, or "" on routes without the access guard.
func callerEmail(ctx *gin.Context) string {
	email, _ := middlewares.EmailFromContext(ctx)
	return email
}
