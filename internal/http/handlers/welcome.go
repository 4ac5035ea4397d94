package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/rolegate/internal/actorctx"
	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Welcome greets callers of a role-gated route. The role is the route's, not the caller's:
// an admin calling /user/user is welcomed as "User".
func Welcome(role user.Role) gin.HandlerFunc {
	message := "Welcome " + role.Title()

	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// Me returns the authenticated caller's own record.
func (h *AuthHandler) Me(ctx *gin.Context) {
	actor, ok := actorctx.From(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "Access Denied")
		return
	}

	u, err := h.accounts.GetUser(ctx.Request.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "me_failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}
