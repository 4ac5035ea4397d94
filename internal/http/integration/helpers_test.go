package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/rolegate/internal/accounts"
	"github.com/geocoder89/rolegate/internal/auth"
	apphttp "github.com/geocoder89/rolegate/internal/http"
	"github.com/geocoder89/rolegate/internal/observability"
	"github.com/geocoder89/rolegate/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key"

type testApp struct {
	router *gin.Engine
	reg    *prometheus.Registry
}

func newTestApp(t *testing.T, store accounts.UserStore) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	tokens := auth.NewManager(testSecret, auth.TokenTTL)
	svc := accounts.NewService(store, security.NewHasher(bcrypt.MinCost, 4), tokens, logger, prom)

	router := apphttp.NewRouter(apphttp.RouterDeps{
		Env:         "dev",
		ServiceName: "rolegate-test",
		Log:         logger,
		Accounts:    svc,
		Verifier:    tokens,
		Ping:        store.Ping,
		Prom:        prom,
		Gatherer:    reg,
	})

	return testApp{router: router, reg: reg}
}

func (a testApp) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a testApp) register(t *testing.T, username, password, role string) {
	t.Helper()

	w := a.do(t, http.MethodPost, "/auth/register",
		`{"username":"`+username+`","password":"`+password+`","role":"`+role+`"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: got %d body=%s", username, w.Code, w.Body.String())
	}
}

func (a testApp) login(t *testing.T, username, password string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: got %d body=%s", username, w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	mustDecode(t, w, &resp)
	if resp.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}
	return resp.Token
}

func mustDecode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal body: %v body=%s", err, w.Body.String())
	}
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	mustDecode(t, w, &resp)
	return resp.Message
}
