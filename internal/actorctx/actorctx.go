// Package actorctx carries the authenticated caller on a context.Context so code below the
// HTTP layer (store calls, logging) can see who is acting without importing gin.
package actorctx

import "context"

type ctxKey struct{}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

func EmailFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)

	return v, ok && v != ""
}
