package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/rolegate/internal/accounts"
	"github.com/geocoder89/rolegate/internal/config"
	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Accounts is the slice of accounts.Service the HTTP layer needs.
type Accounts interface {
	Register(ctx context.Context, in accounts.RegisterInput) (user.User, error)
	Login(ctx context.Context, username, password string) (accounts.LoginResult, error)
	GetUser(ctx context.Context, id string) (user.User, error)
}

type AuthHandler struct {
	accounts Accounts
	log      *slog.Logger
	timeout  time.Duration
}

func NewAuthHandler(svc Accounts, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		accounts: svc,
		log:      log,
		// bcrypt plus a store round trip
		timeout: 5 * time.Second,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.accounts.Register(cctx, accounts.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername):
			RespondConflict(ctx, "username_taken", "Username already exists")
		case errors.Is(err, user.ErrValidation):
			RespondBadRequest(ctx, "invalid_request", err.Error(), nil)
		default:
			h.log.ErrorContext(cctx, "register_failed", "err", err, "request_id", requestIDFrom(ctx))
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.accounts.Login(cctx, req.Username, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrInvalidCredentials):
			RespondBadRequest(ctx, "invalid_credentials", "Invalid credentials", nil)
		default:
			h.log.ErrorContext(cctx, "login_failed", "err", err, "request_id", requestIDFrom(ctx))
			RespondInternal(ctx, "Could not log in")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": res.Token,
	})
}
