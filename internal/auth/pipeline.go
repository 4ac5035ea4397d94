package auth

import (
	"errors"
	"fmt"

	"github.com/geocoder89/rolegate/internal/domain/user"
)

// State is a step of a request's walk through the pipeline.
type State int

const (
	StateStart State = iota
	StateTokenExtracted
	StateTokenVerified
	StateRoleChecked
	StateAuthorized
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateTokenExtracted:
		return "token_extracted"
	case StateTokenVerified:
		return "token_verified"
	case StateRoleChecked:
		return "role_checked"
	case StateAuthorized:
		return "authorized"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type RejectKind int

const (
	KindUnauthorized RejectKind = iota + 1
	KindForbidden
)

func (k RejectKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Rejection is the terminal failure of a pipeline run.
type Rejection struct {
	Kind   RejectKind
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return r.Kind.String() + ": " + r.Reason + ": " + r.Err.Error()
	}
	return r.Kind.String() + ": " + r.Reason
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Passage carries one request's header and whatever the stages have learned so far.
type Passage struct {
	Header string
	Token  string
	Claims *Claims
	State  State
}

// Stage advances a passage or rejects it. A non-nil error must be a *Rejection.
type Stage interface {
	Apply(p *Passage) error
}

type StageFunc func(p *Passage) error

func (f StageFunc) Apply(p *Passage) error {
	return f(p)
}

type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Extract pulls the bearer token out of the Authorization header.
func Extract() Stage {
	return StageFunc(func(p *Passage) error {
		raw, ok := ExtractBearer(p.Header)
		if !ok {
			return &Rejection{Kind: KindUnauthorized, Reason: "missing or malformed authorization header"}
		}
		p.Token = raw
		p.State = StateTokenExtracted
		return nil
	})
}

func Verify(v TokenVerifier) Stage {
	return StageFunc(func(p *Passage) error {
		claims, err := v.Verify(p.Token)
		if err != nil {
			reason := "invalid token"
			if errors.Is(err, ErrExpiredToken) {
				reason = "expired token"
			}
			return &Rejection{Kind: KindUnauthorized, Reason: reason, Err: err}
		}
		p.Claims = claims
		p.State = StateTokenVerified
		return nil
	})
}

func CheckRole(allowed RoleSet) Stage {
	return StageFunc(func(p *Passage) error {
		if p.Claims == nil {
			return &Rejection{Kind: KindUnauthorized, Reason: "missing identity"}
		}
		if !Authorize(allowed, p.Claims.Role) {
			return &Rejection{Kind: KindForbidden, Reason: fmt.Sprintf("role %q not permitted", p.Claims.Role)}
		}
		p.State = StateRoleChecked
		return nil
	})
}

// Pipeline evaluates its stages in order and stops at the first rejection.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(v TokenVerifier, allowed ...user.Role) *Pipeline {
	return &Pipeline{
		stages: []Stage{Extract(), Verify(v), CheckRole(NewRoleSet(allowed...))},
	}
}

// NewPipelineWithStages builds a pipeline from arbitrary stages.
func NewPipelineWithStages(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run returns the passage in StateAuthorized, or the passage in StateRejected together with a *Rejection.
func (pl *Pipeline) Run(header string) (*Passage, error) {
	p := &Passage{Header: header, State: StateStart}

	for _, stage := range pl.stages {
		if err := stage.Apply(p); err != nil {
			p.State = StateRejected

			var rej *Rejection
			if !errors.As(err, &rej) {
				rej = &Rejection{Kind: KindUnauthorized, Reason: "stage failed", Err: err}
			}
			return p, rej
		}
	}

	p.State = StateAuthorized
	return p, nil
}
