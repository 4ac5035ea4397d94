package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/rolegate/internal/actorctx"
	"github.com/geocoder89/rolegate/internal/auth"
	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/geocoder89/rolegate/internal/http/middlewares"
	"github.com/geocoder89/rolegate/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key"

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// setupProtected mounts one protected route and reports whether its handler ran.
func setupProtected(t *testing.T, prom *observability.Prom, roles ...user.Role) (*gin.Engine, *bool) {
	t.Helper()

	reached := false
	m := middlewares.NewAuthMiddleware(auth.NewManager(testSecret, auth.TokenTTL), prom, nil)

	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/protected", m.Require(roles...), func(c *gin.Context) {
		reached = true

		id, _ := middlewares.UserIDFromContext(c)
		role, _ := middlewares.RoleFromContext(c)
		actor, ok := actorctx.From(c.Request.Context())
		if !ok || actor.UserID != id || actor.Role != role {
			t.Errorf("request context actor %+v does not match gin identity %s/%s", actor, id, role)
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})

	return r, &reached
}

func issue(t *testing.T, secret string, role user.Role, opts ...auth.Option) string {
	t.Helper()
	token, err := auth.NewManager(secret, auth.TokenTTL, opts...).Issue("user-1", role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestRequire(t *testing.T) {
	expiredAt := time.Now().Add(-2 * time.Hour)

	tests := []struct {
		name        string
		header      string
		roles       []user.Role
		wantStatus  int
		wantMessage string
		wantReached bool
	}{
		{
			name:        "missing header",
			header:      "",
			roles:       []user.Role{user.RoleUser},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access Denied",
		},
		{
			name:        "bearer without token",
			header:      "Bearer ",
			roles:       []user.Role{user.RoleUser},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access Denied",
		},
		{
			name:        "garbage token",
			header:      "Bearer not-a-token",
			roles:       []user.Role{user.RoleUser},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access Denied",
		},
		{
			name:        "wrong signing key",
			header:      "Bearer " + issue(t, "other-secret", user.RoleUser),
			roles:       []user.Role{user.RoleUser},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access Denied",
		},
		{
			name:        "expired token",
			header:      "Bearer " + issue(t, testSecret, user.RoleUser, auth.WithClock(func() time.Time { return expiredAt })),
			roles:       []user.Role{user.RoleUser},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access Denied",
		},
		{
			name:        "role mismatch",
			header:      "Bearer " + issue(t, testSecret, user.RoleUser),
			roles:       []user.Role{user.RoleAdmin},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Forbidden",
		},
		{
			name:        "admin is not implicitly a moderator",
			header:      "Bearer " + issue(t, testSecret, user.RoleAdmin),
			roles:       []user.Role{user.RoleModerator},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Forbidden",
		},
		{
			name:        "allowed",
			header:      "Bearer " + issue(t, testSecret, user.RoleModerator),
			roles:       []user.Role{user.RoleAdmin, user.RoleModerator},
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, reached := setupProtected(t, nil, tc.roles...)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatus, w.Body.String())
			}

			if *reached != tc.wantReached {
				t.Fatalf("handler reached = %v, want %v", *reached, tc.wantReached)
			}

			if tc.wantMessage == "" {
				return
			}

			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to unmarshal body: %v body=%s", err, w.Body.String())
			}
			if body.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", body.Message, tc.wantMessage)
			}
			if body.RequestID == "" {
				t.Fatalf("expected requestId in error body")
			}
		})
	}
}

func TestRequire_RecordsDecisions(t *testing.T) {
	prom := observability.NewProm(prometheus.NewRegistry())
	r, _ := setupProtected(t, prom, user.RoleAdmin)

	for _, header := range []string{"", "Bearer " + issue(t, testSecret, user.RoleUser), "Bearer " + issue(t, testSecret, user.RoleAdmin)} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	for outcome, want := range map[string]float64{"unauthorized": 1, "forbidden": 1, "authorized": 1} {
		got := testutil.ToFloat64(prom.AuthDecisions.WithLabelValues("/protected", outcome))
		if got != want {
			t.Errorf("decisions{%s} = %v, want %v", outcome, got, want)
		}
	}
}
