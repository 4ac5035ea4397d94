// Package actorctx carries the authenticated caller on a context.Context so code
// below the HTTP layer can see who is acting without depending on gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/rolegate/internal/domain/user"
)

type ctxKey struct{}

type Actor struct {
	UserID string
	Role   user.Role
}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)

	return a, ok && a.UserID != ""
}
