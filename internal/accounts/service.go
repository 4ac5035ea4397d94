// Package accounts implements registration and login on top of a credential store,
// a password hasher and a token issuer.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/geocoder89/rolegate/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UserStore persists users. Create must reject a taken username atomically.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, role user.Role) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Ping(ctx context.Context) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) bool
}

type TokenIssuer interface {
	Issue(userID string, role user.Role) (string, error)
}

type Service struct {
	store  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
	prom   *observability.Prom
	tracer trace.Tracer
}

func NewService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger, prom *observability.Prom) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		prom:   prom,
		tracer: otel.Tracer("github.com/geocoder89/rolegate/internal/accounts"),
	}
}

type RegisterInput struct {
	Username string
	Password string
	Role     string
}

type LoginResult struct {
	Token string
	User  user.User
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (u user.User, err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Register", trace.WithAttributes(
		attribute.String("user.role", in.Role),
	))
	defer func() {
		s.finish(span, "register", err)
	}()

	if err = user.ValidateUsername(in.Username); err != nil {
		return user.User{}, err
	}

	role, err := user.ParseRole(in.Role)
	if err != nil {
		return user.User{}, err
	}

	start := time.Now()
	hash, err := s.hasher.Hash(ctx, in.Password)
	s.prom.ObserveHashing("hash", time.Since(start))
	if err != nil {
		if errors.Is(err, user.ErrValidation) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err = s.store.Create(ctx, in.Username, hash, role)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateUsername) || errors.Is(err, user.ErrValidation) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	s.log.InfoContext(ctx, "user_registered", "user_id", u.ID, "role", u.Role)

	return u, nil
}

// Login verifies the credentials and issues an access token for the user.
func (s *Service) Login(ctx context.Context, username, password string) (res LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Login")
	defer func() {
		s.finish(span, "login", err)
	}()

	found, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return LoginResult{}, err
		}
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	start := time.Now()
	ok := s.hasher.Verify(ctx, password, found.PasswordHash)
	s.prom.ObserveHashing("verify", time.Since(start))

	if !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LoginResult{}, fmt.Errorf("verify password: %w", ctxErr)
		}
		return LoginResult{}, user.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(found.ID, found.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", found.ID))
	s.log.InfoContext(ctx, "user_logged_in", "user_id", found.ID)

	return LoginResult{Token: token, User: found}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()

	result := resultOf(err)
	s.prom.ObserveAccountEvent(op, result)

	if err == nil {
		return
	}

	span.SetAttributes(attribute.String("result", result))
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrValidation):
		return "invalid"
	case errors.Is(err, user.ErrDuplicateUsername):
		return "duplicate"
	case errors.Is(err, user.ErrNotFound):
		return "not_found"
	case errors.Is(err, user.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}
