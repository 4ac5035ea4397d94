package actorctx

import (
	"context"
	"testing"

	"github.com/geocoder89/rolegate/internal/domain/user"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := With(context.Background(), Actor{UserID: "u1", Role: user.RoleAdmin})

	a, ok := From(ctx)
	if !ok {
		t.Fatalf("expected actor on context")
	}
	if a.UserID != "u1" || a.Role != user.RoleAdmin {
		t.Fatalf("unexpected actor %+v", a)
	}
}

func TestActorMissing(t *testing.T) {
	if _, ok := From(context.Background()); ok {
		t.Fatalf("expected no actor on empty context")
	}

	if _, ok := From(With(context.Background(), Actor{})); ok {
		t.Fatalf("an actor without user id must not count")
	}
}
