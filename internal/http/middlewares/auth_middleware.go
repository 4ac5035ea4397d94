package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/rolegate/internal/actorctx"
	"github.com/geocoder89/rolegate/internal/auth"
	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/geocoder89/rolegate/internal/observability"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	verifier auth.TokenVerifier
	prom     *observability.Prom
	log      *slog.Logger
}

func NewAuthMiddleware(verifier auth.TokenVerifier, prom *observability.Prom, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{verifier: verifier, prom: prom, log: log}
}

// Require admits only requests bearing a valid token whose role is one of roles.
// Anything else is answered here and never reaches the handler.
func (m *AuthMiddleware) Require(roles ...user.Role) gin.HandlerFunc {
	pipeline := auth.NewPipeline(m.verifier, roles...)

	return func(c *gin.Context) {
		route := c.FullPath()

		passage, err := pipeline.Run(c.GetHeader("Authorization"))
		if err != nil {
			var rej *auth.Rejection
			if !errors.As(err, &rej) {
				rej = &auth.Rejection{Kind: auth.KindUnauthorized, Reason: "unexpected", Err: err}
			}

			m.log.DebugContext(c.Request.Context(), "auth_rejected",
				"route", route,
				"kind", rej.Kind.String(),
				"reason", rej.Reason,
				"request_id", requestID(c),
			)
			m.prom.ObserveAuthDecision(route, rej.Kind.String())

			if rej.Kind == auth.KindForbidden {
				abortWithError(c, http.StatusForbidden, "forbidden", "Forbidden")
				return
			}
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Access Denied")
			return
		}

		m.prom.ObserveAuthDecision(route, "authorized")

		// Stash identity on both the gin context and the request context
		c.Set(ctxUserIDKey, passage.Claims.Subject)
		c.Set(ctxRoleKey, passage.Claims.Role)
		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
			UserID: passage.Claims.Subject,
			Role:   passage.Claims.Role,
		}))

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(user.Role)
	return role, ok
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.GetHeader(requestIDHeader)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id := requestID(c); id != "" {
		body["requestId"] = id
	}
	c.AbortWithStatusJSON(status, body)
}
